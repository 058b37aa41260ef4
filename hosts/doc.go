// Package hosts loads per-host configuration files and resolves them into the
// authentication policies the engine serves.
//
// A host file is YAML (.yaml, .yml) or JSON with comments (.json, .jsonc). It holds
// one host object or a list of them:
//
//	serverName: [app.example.com, www.example.com]
//	secretKey: change-me
//	server:
//	  auth:
//	    mode: slideExpiration
//	    issuer: true
//	    provider: {name: local, id: 1, trusted: true}
//	  locations:
//	    /admin:
//	      auth: {mode: fixed}
//
// Location `auth` fragments are reduced to a mode override; every other key they
// carry is discarded. Server names must be unique across all loaded hosts.
package hosts
