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
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"syncengine/internal/causality"
	"syncengine/internal/errors"
	"syncengine/internal/idcodec"
	"syncengine/internal/syncorder"
	"syncengine/internal/synclog"
)

// Options configures bundle generation and import: the compression
// codec to use, and the optional at-rest seal. Both default to "off":
// compression and encryption are opt-in, not opt-out.
type Options struct {
	Compression Algorithm
	Seal        SealConfig
}

// Generate builds a bundle containing every locally-known operation the
// peer identified by peerID hasn't seen yet (per sinceVC, the peer's
// last-known vector clock), orders them, writes the container to a temp
// path under filepath.Dir(outPath), and atomically renames it into
// place. Returns outPath on success.
func Generate(log *synclog.Store, peerID string, sinceVC *causality.VectorClock, schema []SchemaSnapshotEntry, outPath string, opts Options) (string, error) {
	pending := log.GetNewOperations(sinceVC)
	ordered := syncorder.Order(pending)

	manifest := Manifest{
		BundleID:       string(idcodec.NewID()),
		SourceDeviceID: string(log.DeviceID()),
		PeerDeviceID:   peerID,
		CreatedAt:      time.Now().UnixMicro(),
		FormatVersion:  FormatVersion,
		OpCount:        len(ordered),
		CausalSummary:  causalSummaryOf(ordered),
	}

	sha, err := computeSHA256(manifest, ordered)
	if err != nil {
		return "", err
	}
	manifest.SHA256 = sha

	bundle := &Bundle{Manifest: manifest, Operations: ordered, SchemaSnapshot: schema}

	scratchDir, err := os.MkdirTemp(filepath.Dir(outPath), "bundle-scratch-*")
	if err != nil {
		return "", errors.NewBundleError("failed to create bundle scratch dir").WithCause(err)
	}
	defer os.RemoveAll(scratchDir)

	var raw, compressed, sealed []byte
	var g errgroup.Group
	g.Go(func() error {
		var encErr error
		raw, encErr = encodePayload(bundle, scratchDir)
		return encErr
	})
	if err := g.Wait(); err != nil {
		return "", err
	}

	compressed, err = compressPayload(opts.Compression, raw)
	if err != nil {
		return "", err
	}
	sealed, err = sealPayload(opts.Seal, compressed)
	if err != nil {
		return "", err
	}

	header, err := encodeAlgorithmHeader(opts.Compression)
	if err != nil {
		return "", err
	}
	out := append([]byte{header}, sealed...)

	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, out, 0o600); err != nil {
		return "", errors.NewBundleError("failed to write bundle temp file").WithCause(err)
	}
	if err := os.Rename(tmpPath, outPath); err != nil {
		os.Remove(tmpPath)
		return "", errors.NewBundleError("failed to finalize bundle file").WithCause(err)
	}
	return outPath, nil
}

// Load reads and validates a bundle container from path, verifying its
// integrity hash before returning it. A hash mismatch or unreadable
// container returns an error without a partial Bundle. The compression
// codec is read from the file's own one-byte header rather than taken
// from opts, so a caller never has to already know which codec produced
// the bundle -- only opts.Seal (if the sender opted into at-rest
// sealing) needs to be supplied out of band, since a passphrase can't
// be self-describing.
func Load(path string, opts Options) (*Bundle, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.BundleUnreadable("cannot read bundle file").WithCause(err)
	}
	if len(contents) < 1 {
		return nil, errors.BundleUnreadable("bundle file is empty")
	}
	algo, err := decodeAlgorithmHeader(contents[0])
	if err != nil {
		return nil, err
	}
	sealed := contents[1:]

	compressed, err := unsealPayload(opts.Seal, sealed)
	if err != nil {
		return nil, err
	}
	raw, err := decompressPayload(algo, compressed)
	if err != nil {
		return nil, err
	}

	scratchDir, err := os.MkdirTemp(filepath.Dir(path), "bundle-decode-*")
	if err != nil {
		return nil, errors.NewBundleError("failed to create bundle decode scratch dir").WithCause(err)
	}
	defer os.RemoveAll(scratchDir)

	bundle, err := decodePayload(raw, scratchDir)
	if err != nil {
		return nil, err
	}

	expected, err := computeSHA256(bundle.Manifest, bundle.Operations)
	if err != nil {
		return nil, err
	}
	if expected != bundle.Manifest.SHA256 {
		return nil, errors.BundleHashMismatch(bundle.Manifest.BundleID)
	}
	return bundle, nil
}
