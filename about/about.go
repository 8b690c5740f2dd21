package about

// Version is overridden at build time with
// -ldflags "-X github.com/ocuroot/ud/about.Version=..."
var Version = "dev"
