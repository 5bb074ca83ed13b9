package mediakit

// BuildNumber identifies the running build. It is stamped into every
// response and webhook payload. Set via -ldflags during release builds:
//
//	go build -ldflags "-X github.com/mediakit/mediakit-go.BuildNumber=142"
var BuildNumber = "dev"
