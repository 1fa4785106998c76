// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package registry

// Reject reason codes, written verbatim to rejected_adverts.reason so the
// rejection log stays legible without a lookup table.
const (
	ReasonInvalidPub        = "invalid_pub"
	ReasonMissingStructure  = "missing_structure"
	ReasonNameEmpty         = "invalid_name_empty"
	ReasonNameTooShort      = "invalid_name_too_short"
	ReasonNameReplacement   = "invalid_name_replacement_char"
	ReasonNameControlChars  = "invalid_name_too_many_control_chars"
	ReasonGPSZeroPoint      = "zero_point"
	ReasonGPSOutOfRange     = "out_of_range"
	ReasonGPSNotFinite      = "not_finite"
)
