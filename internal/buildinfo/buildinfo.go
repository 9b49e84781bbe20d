// Package buildinfo exposes version metadata stamped at link time:
//
//	go build -ldflags "-X haulplan/internal/buildinfo.Version=v1.2.0 ..."
package buildinfo

var (
    Version = "dev"
    Commit  = ""
    BuiltAt = ""
)

// Info returns the stamped fields for the health and debug endpoints.
func Info() map[string]string {
    return map[string]string{
        "version": Version,
        "commit":  Commit,
        "builtAt": BuiltAt,
    }
}
