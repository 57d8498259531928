// Package registry is the static application catalog: which self-hosted
// apps dockhand knows how to run, where each one keeps its config under
// the base directory, and how its compose definition is produced.
package registry

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ComposeFileName is the service definition file inside each app directory.
const ComposeFileName = "compose.yaml"

// Strategy describes how an app's state is captured and how its compose
// definition is generated. It is a closed set: single config path, a few
// config paths, or a path set plus a custom compose generator. The
// executors dispatch over this instead of matching on app names.
type Strategy interface {
	// ConfigPaths returns the app-relative directories holding state
	// worth backing up.
	ConfigPaths() []string

	// ComposeSpec renders the compose definition, or returns nil to use
	// the default single-service rendering.
	ComposeSpec(app App) ([]byte, error)
}

// SinglePath is the common case: one config directory.
type SinglePath struct {
	Path string
}

func (s SinglePath) ConfigPaths() []string           { return []string{s.Path} }
func (s SinglePath) ComposeSpec(App) ([]byte, error) { return nil, nil }

// MultiPath covers apps that scatter state across several directories.
type MultiPath struct {
	Paths []string
}

func (m MultiPath) ConfigPaths() []string           { return m.Paths }
func (m MultiPath) ComposeSpec(App) ([]byte, error) { return nil, nil }

// CustomCompose covers apps whose compose definition needs more than one
// service (sidecar database, cache) and so carries its own generator.
type CustomCompose struct {
	Paths    []string
	Generate func(app App) ([]byte, error)
}

func (c CustomCompose) ConfigPaths() []string { return c.Paths }
func (c CustomCompose) ComposeSpec(app App) ([]byte, error) {
	return c.Generate(app)
}

// App is one catalog entry.
type App struct {
	Name     string
	Image    string
	Ports    []string
	Strategy Strategy
}

// ConfigPaths returns the app's declared state directories, app-relative.
func (a App) ConfigPaths() []string {
	return a.Strategy.ConfigPaths()
}

var catalog = []App{
	{Name: "jellyfin", Image: "lscr.io/linuxserver/jellyfin:latest", Ports: []string{"8096:8096"}, Strategy: SinglePath{Path: "config"}},
	{Name: "radarr", Image: "lscr.io/linuxserver/radarr:latest", Ports: []string{"7878:7878"}, Strategy: SinglePath{Path: "config"}},
	{Name: "sonarr", Image: "lscr.io/linuxserver/sonarr:latest", Ports: []string{"8989:8989"}, Strategy: SinglePath{Path: "config"}},
	{Name: "prowlarr", Image: "lscr.io/linuxserver/prowlarr:latest", Ports: []string{"9696:9696"}, Strategy: SinglePath{Path: "config"}},
	{Name: "qbittorrent", Image: "lscr.io/linuxserver/qbittorrent:latest", Ports: []string{"8080:8080"}, Strategy: SinglePath{Path: "config"}},
	{Name: "vaultwarden", Image: "vaultwarden/server:latest", Ports: []string{"8222:80"}, Strategy: SinglePath{Path: "data"}},
	{Name: "nextcloud", Image: "nextcloud:latest", Ports: []string{"8081:80"}, Strategy: MultiPath{Paths: []string{"config", "data", "db"}}},
	{Name: "paperless", Image: "ghcr.io/paperless-ngx/paperless-ngx:latest", Ports: []string{"8010:8000"}, Strategy: CustomCompose{
		Paths:    []string{"data", "media", "db"},
		Generate: paperlessCompose,
	}},
}

// All returns every catalog entry in registry order. Backup runs iterate
// in this order; it only affects log readability.
func All() []App {
	out := make([]App, len(catalog))
	copy(out, catalog)
	return out
}

// Get looks up one app by name.
func Get(name string) (App, bool) {
	for _, a := range catalog {
		if a.Name == name {
			return a, true
		}
	}
	return App{}, false
}

// AppDir returns the app's directory under the base directory.
func AppDir(baseDir, name string) string {
	return filepath.Join(baseDir, name)
}

// ComposePath returns the app's compose file location.
func ComposePath(baseDir, name string) string {
	return filepath.Join(baseDir, name, ComposeFileName)
}

// IsInstalled reports whether one catalog app is present on disk. An app
// counts as installed only when its compose file AND at least one
// declared config path exist: a compose file alone is the residue of a
// failed install, not an installation.
func IsInstalled(baseDir string, app App) bool {
	if !exists(ComposePath(baseDir, app.Name)) {
		return false
	}
	for _, p := range app.ConfigPaths() {
		if exists(filepath.Join(AppDir(baseDir, app.Name), p)) {
			return true
		}
	}
	return false
}

// Installed returns the catalog apps present on disk, in registry order.
func Installed(baseDir string) []App {
	var out []App
	for _, a := range catalog {
		if IsInstalled(baseDir, a) {
			out = append(out, a)
		}
	}
	return out
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// composeService mirrors the subset of the compose schema we emit.
type composeService struct {
	Image         string   `yaml:"image"`
	ContainerName string   `yaml:"container_name"`
	Restart       string   `yaml:"restart"`
	Ports         []string `yaml:"ports,omitempty"`
	Volumes       []string `yaml:"volumes,omitempty"`
	Environment   []string `yaml:"environment,omitempty"`
	DependsOn     []string `yaml:"depends_on,omitempty"`
}

type composeFile struct {
	Services map[string]composeService `yaml:"services"`
}

// ComposeSpec renders the app's compose definition: the strategy's custom
// generator when it has one, the default single-service layout otherwise.
func ComposeSpec(app App) ([]byte, error) {
	if data, err := app.Strategy.ComposeSpec(app); err != nil || data != nil {
		return data, err
	}

	svc := composeService{
		Image:         app.Image,
		ContainerName: app.Name,
		Restart:       "unless-stopped",
		Ports:         app.Ports,
	}
	for _, p := range app.ConfigPaths() {
		svc.Volumes = append(svc.Volumes, fmt.Sprintf("./%s:/%s", p, p))
	}

	return yaml.Marshal(composeFile{Services: map[string]composeService{app.Name: svc}})
}

// WriteCompose regenerates the app's compose file from the catalog.
func WriteCompose(baseDir string, app App) error {
	data, err := ComposeSpec(app)
	if err != nil {
		return fmt.Errorf("failed to render compose spec for %s: %w", app.Name, err)
	}
	dir := AppDir(baseDir, app.Name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create app directory %s: %w", dir, err)
	}
	if err := os.WriteFile(ComposePath(baseDir, app.Name), data, 0644); err != nil {
		return fmt.Errorf("failed to write compose file for %s: %w", app.Name, err)
	}
	return nil
}

func paperlessCompose(app App) ([]byte, error) {
	return yaml.Marshal(composeFile{Services: map[string]composeService{
		"paperless": {
			Image:         app.Image,
			ContainerName: app.Name,
			Restart:       "unless-stopped",
			Ports:         app.Ports,
			Volumes:       []string{"./data:/usr/src/paperless/data", "./media:/usr/src/paperless/media"},
			Environment:   []string{"PAPERLESS_REDIS=redis://paperless-redis:6379", "PAPERLESS_DBHOST=paperless-db"},
			DependsOn:     []string{"paperless-redis", "paperless-db"},
		},
		"paperless-redis": {
			Image:         "redis:7",
			ContainerName: "paperless-redis",
			Restart:       "unless-stopped",
		},
		"paperless-db": {
			Image:         "postgres:16",
			ContainerName: "paperless-db",
			Restart:       "unless-stopped",
			Volumes:       []string{"./db:/var/lib/postgresql/data"},
			Environment:   []string{"POSTGRES_DB=paperless", "POSTGRES_USER=paperless", "POSTGRES_PASSWORD=paperless"},
		},
	}})
}
