// Package tlscert serves a TLS key pair that is reloaded from disk when the
// files change, so certificates of the admin HTTP endpoint can be rotated
// without a restart.
//
//	r, err := tlscert.NewReloader("server.crt", "server.key")
//	go r.Run(ctx)
//	srv.TLSConfig = r.TLSConfig()
package tlscert
