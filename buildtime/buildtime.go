package buildtime

// PROGNAME, VERSION, COMMIT and DATE are overridden at link time, e.g.
// -ldflags "-X github.com/ludios/reapfrog/buildtime.VERSION=0.2.0".
var (
	PROGNAME = "reapfrog"
	VERSION  = "dev"
	COMMIT   = "unknown"
	DATE     = "unknown"
)
