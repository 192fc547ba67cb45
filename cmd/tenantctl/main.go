// cmd/tenantctl/main.go
//
// Operator CLI for tenant schema migrations.
//
// Usage
// -----
//
//	tenantctl migrate up                 # shared schema, then every tenant
//	tenantctl migrate up --tenant <id>   # one tenant only
//	tenantctl migrate down               # revert latest migration, newest tenant first
//	tenantctl migrate status             # pending migrations per tenant
//
// Configuration is read exactly as cmd/web reads it (conf/global.yaml plus
// TENANCY_ overrides).
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "tenantctl:", err)
		os.Exit(1)
	}
}
