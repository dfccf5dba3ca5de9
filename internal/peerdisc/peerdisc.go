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

/*
Package peerdisc finds candidate peers to feed into sync_peers'
endpoint_hint. It is deliberately thin: discovery is a best-effort hint
source, never a requirement, since the transport adapter contract (§6)
is satisfied by any external implementation regardless of how the peer
was found.
*/
package peerdisc

import (
	"fmt"
	"time"

	"github.com/hashicorp/mdns"
)

// PeerHint is a candidate peer surfaced by some discovery mechanism.
type PeerHint struct {
	DeviceIDHint string // best-effort; the real device_id is only known after ExchangeVectorClock
	Endpoint     string
	Source       string // "mdns" or "dns-seed"
}

// ServiceName is the mDNS service type sync nodes advertise under.
const ServiceName = "_syncengine._tcp"

// Discover browses the local network for ServiceName instances for up
// to timeout, returning whatever answered.
func Discover(timeout time.Duration) ([]PeerHint, error) {
	entries := make(chan *mdns.ServiceEntry, 16)
	var hints []PeerHint
	done := make(chan struct{})

	go func() {
		defer close(done)
		for entry := range entries {
			hints = append(hints, PeerHint{
				DeviceIDHint: entry.Name,
				Endpoint:     fmt.Sprintf("%s:%d", entry.AddrV4, entry.Port),
				Source:       "mdns",
			})
		}
	}()

	params := mdns.DefaultParams(ServiceName)
	params.Entries = entries
	params.Timeout = timeout
	if err := mdns.Query(params); err != nil {
		close(entries)
		return nil, err
	}
	close(entries)
	<-done
	return hints, nil
}

// Advertise registers this device as a ServiceName instance so peers
// running Discover can find it. It runs until the returned stop func is
// called.
func Advertise(deviceIDHint string, port int) (stop func(), err error) {
	info := []string{"syncengine replication peer"}
	service, err := mdns.NewMDNSService(deviceIDHint, ServiceName, "", "", port, nil, info)
	if err != nil {
		return nil, err
	}
	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, err
	}
	return func() { server.Shutdown() }, nil
}
