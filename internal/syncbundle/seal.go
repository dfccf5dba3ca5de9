/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package syncbundle

import (
	"crypto/rand"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/sha3"

	"syncengine/internal/errors"
)

// SealConfig controls the optional at-rest envelope wrapped around a
// bundle's (possibly compressed) container bytes before it is written
// to out_path. Sealing a bundle is separate from sealing the storage
// engine's own at-rest files (internal/storage's own Encryption
// concern) -- a bundle may travel over an untrusted transport even when
// the local data directory is left unencrypted.
type SealConfig struct {
	Enabled    bool
	Passphrase string
}

func sealPayload(cfg SealConfig, data []byte) ([]byte, error) {
	if !cfg.Enabled {
		return data, nil
	}
	aead, err := newSealCipher(cfg.Passphrase)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, errors.NewBundleError("failed to generate bundle seal nonce").WithCause(err)
	}
	sealed := aead.Seal(nil, nonce, data, nil)
	return append(nonce, sealed...), nil
}

func unsealPayload(cfg SealConfig, data []byte) ([]byte, error) {
	if !cfg.Enabled {
		return data, nil
	}
	aead, err := newSealCipher(cfg.Passphrase)
	if err != nil {
		return nil, err
	}
	if len(data) < aead.NonceSize() {
		return nil, errors.BundleUnreadable("sealed bundle shorter than nonce")
	}
	nonce, ciphertext := data[:aead.NonceSize()], data[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, errors.BundleUnreadable("bundle seal authentication failed").WithCause(err)
	}
	return plain, nil
}

func newSealCipher(passphrase string) (interface {
	Seal(dst, nonce, plaintext, additionalData []byte) []byte
	Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
	NonceSize() int
}, error) {
	key := sha3.Sum256([]byte(passphrase))
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, errors.NewBundleError("failed to initialize bundle seal cipher").WithCause(err)
	}
	return aead, nil
}
