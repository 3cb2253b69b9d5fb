package pkg

// set with -ldflags "-X github.com/yusing/fswatch-forward/pkg.version=..."
var version = "dev"

func GetVersion() string {
	return version
}
