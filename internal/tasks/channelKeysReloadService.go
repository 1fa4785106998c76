// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package tasks

import (
	"github.com/go-co-op/gocron/v2"

	"github.com/meshrank/meshrank/internal/codec/keystore"
	"github.com/meshrank/meshrank/internal/messages"
	"github.com/meshrank/meshrank/pkg/log"
)

// RegisterChannelKeysReloadService polls the channel-keys file's mtime on
// keystore.PollInterval and, on a change, swaps the message store's
// key store so new channel names/plaintext use the fresh secrets.
func RegisterChannelKeysReloadService(loader *keystore.Loader, msgs *messages.Messages) {
	log.Info("tasks: registering channel keys reload service")

	_, err := s.NewJob(
		gocron.DurationJob(keystore.PollInterval),
		gocron.NewTask(func() {
			reloaded, err := loader.Reload()
			if err != nil {
				log.Warnf("tasks: channel keys reload: %v", err)
				return
			}
			if reloaded {
				log.Info("tasks: channel keys reloaded")
				msgs.SetKeyStore(loader.Current())
			}
		}),
	)
	if err != nil {
		log.Errorf("tasks: could not register channel keys reload service: %v", err)
	}
}
