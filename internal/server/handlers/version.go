package handlers

import (
	"net/http"
	"runtime"

	"github.com/fulmenhq/gofulmen/crucible"
)

// AppName is reported by /version.
const AppName = "chatrelay"

// Build metadata, set from main through SetVersionInfo.
var (
	AppVersion   = "dev"
	AppCommit    = "unknown"
	AppBuildDate = "unknown"
)

func SetVersionInfo(version, commit, buildDate string) {
	AppVersion, AppCommit, AppBuildDate = version, commit, buildDate
}

// VersionResponse is the /version body.
type VersionResponse struct {
	App     AppInfo `json:"app"`
	Persona string  `json:"persona,omitempty"`
	// Dependencies lists the gofulmen and crucible versions compiled in.
	Dependencies struct {
		Gofulmen string `json:"gofulmen"`
		Crucible string `json:"crucible"`
	} `json:"dependencies"`
	Runtime struct {
		Platform      string `json:"platform"`
		NumCPU        int    `json:"num_cpu"`
		NumGoroutines int    `json:"num_goroutines"`
	} `json:"runtime"`
}

type AppInfo struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Commit    string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version,omitempty"`
}

// VersionHandler reports build metadata and the active persona slug.
func VersionHandler(persona string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := VersionResponse{
			App: AppInfo{
				Name:      AppName,
				Version:   AppVersion,
				Commit:    AppCommit,
				BuildDate: AppBuildDate,
				GoVersion: runtime.Version(),
			},
			Persona: persona,
		}

		deps := crucible.GetVersion()
		resp.Dependencies.Gofulmen = deps.Gofulmen
		resp.Dependencies.Crucible = deps.Crucible

		resp.Runtime.Platform = runtime.GOOS + "/" + runtime.GOARCH
		resp.Runtime.NumCPU = runtime.NumCPU()
		resp.Runtime.NumGoroutines = runtime.NumGoroutine()

		writeJSON(w, http.StatusOK, resp)
	}
}
