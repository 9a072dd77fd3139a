// Package web includes the static web page of the search monitor.
package web

import (
	"embed"
	"fmt"
	"net/http"
	"os"
	"path"
	"runtime"
	"strings"
)

//go:embed index.html
var staticAssets embed.FS

// AssetDirEnv selects where the monitor page comes from. Unset, "false" or
// "0" serve the embedded page. "true" or "1" serve this package's source
// directory. Any other value is taken as the directory to serve.
const AssetDirEnv = "MESHPLACE_MONITOR_DEV"

// GetAssets returns the static assets
func GetAssets() http.FileSystem {
	dir, ok := assetDir()
	if !ok {
		return http.FS(staticAssets)
	}

	fmt.Printf("In monitor development mode, serving assets from %s\n", dir)

	return http.Dir(dir)
}

func assetDir() (string, bool) {
	value := strings.TrimSpace(os.Getenv(AssetDirEnv))

	switch strings.ToLower(value) {
	case "", "false", "0":
		return "", false
	case "true", "1":
		return sourceDir(), true
	default:
		return value, true
	}
}

func sourceDir() string {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		panic("error getting path")
	}

	return path.Dir(file)
}
