// Command netconf-settings is a settings extension for host network
// configuration. It publishes three versions of its settings:
//
//	v1  mtu
//	v2  mtu, mode (auto or manual)
//	v3  mtu, mode, interfaces
//
// Migrators connect every pair of neighbouring versions in both directions.
// Downgrades fail when the newer settings use something the older version
// cannot express.
package main

import "github.com/mesh-intelligence/settings-sdk/pkg/cli"

func main() {
	cli.Execute(newExtension())
}
