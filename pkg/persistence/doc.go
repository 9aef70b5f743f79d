// Package persistence stores gateway credentials across restarts.
//
// Credentials are kept in a single JSON file keyed by gateway host:
//
//	{"192.168.1.10": {"identity": "...", "key": "..."}}
//
// The key is the pre-shared key issued by the gateway during provisioning.
package persistence
