// Package config loads node configuration from YAML.
//
// A file only needs the keys it changes; everything else keeps the value
// from Default. Durations are written as Go duration strings ("30s",
// "1m30s"). Load validates the result.
//
// Example:
//
//	node:
//	  name: kitchen-tablet
//	transports:
//	  wifi_direct:
//	    interface: p2p-wlan0-0
//	registry:
//	  stale_after: 90s
//	connection:
//	  policy: signal
package config
