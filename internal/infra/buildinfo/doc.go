// Package buildinfo exposes the version of the running binary.
//
// Values are injected at build time via ldflags:
//
//	go build -ldflags "-X github.com/yndnr/respkv-go/internal/infra/buildinfo.Version=v1.0.0"
//
// When Commit or BuildTime are not injected they are taken from the VCS
// stamp embedded by the Go toolchain, if any.
package buildinfo
