package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"time"
)

// KnowledgeSearcher answers personal-fact queries for the knowledge tool.
type KnowledgeSearcher interface {
	Search(ctx context.Context, query string) ([]string, error)
}

// Clock is injectable for the time tool.
type Clock func() time.Time

// BuiltinDeps carries the collaborators the builtin set needs. Zero-value
// fields disable the corresponding tool gracefully at call time.
type BuiltinDeps struct {
	Knowledge      KnowledgeSearcher
	WeatherAPIKey  string
	HTTPClient     *http.Client
	Now            Clock
	CommandContext func(ctx context.Context, name string, arg ...string) *exec.Cmd
}

// RegisterBuiltins installs the standard tool suite: application launch,
// system status, web search, volume and media keys, personal knowledge,
// time, weather, ghost-writer paste and screen capture. OS side effects are
// each tool's own concern; the dispatcher only isolates their failures.
func RegisterBuiltins(r *Registry, deps BuiltinDeps) error {
	if deps.HTTPClient == nil {
		deps.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.CommandContext == nil {
		deps.CommandContext = exec.CommandContext
	}

	set := []Tool{
		{
			Name: "open_application",
			Desc: "Opens, launches or starts an application. 'name' is the simple app name, e.g. 'calculator' or 'chrome'.",
			Params: map[string]Param{
				"name": {Type: TypeString, Desc: "application name", Required: true},
			},
			Run: func(ctx context.Context, args map[string]any) (string, error) {
				return openApplication(ctx, deps, stringArg(args, "name"))
			},
		},
		{
			Name: "get_system_status",
			Desc: "Returns current CPU load and RAM usage.",
			Run: func(ctx context.Context, args map[string]any) (string, error) {
				return systemStatus()
			},
		},
		{
			Name: "google_search",
			Desc: "Opens a web search for the given query in the default browser.",
			Params: map[string]Param{
				"query": {Type: TypeString, Desc: "search terms", Required: true},
			},
			Run: func(ctx context.Context, args map[string]any) (string, error) {
				query := stringArg(args, "query")
				target := "https://www.google.com/search?q=" + url.QueryEscape(query)
				if err := deps.CommandContext(ctx, "xdg-open", target).Start(); err != nil {
					return "", fmt.Errorf("failed to open browser: %w", err)
				}
				return fmt.Sprintf("I have opened a web search for: %s", query), nil
			},
		},
		{
			Name: "system_volume",
			Desc: "Controls system volume. 'action' must be 'up', 'down' or 'mute'.",
			Params: map[string]Param{
				"action": {Type: TypeString, Desc: "up, down or mute", Required: true},
			},
			Run: func(ctx context.Context, args map[string]any) (string, error) {
				return systemVolume(ctx, deps, stringArg(args, "action"))
			},
		},
		{
			Name: "media_play_pause",
			Desc: "Toggles play/pause for the active media player.",
			Run: func(ctx context.Context, args map[string]any) (string, error) {
				if err := deps.CommandContext(ctx, "playerctl", "play-pause").Run(); err != nil {
					return "", fmt.Errorf("media control failed: %w", err)
				}
				return "Media play/pause toggled.", nil
			},
		},
		{
			Name: "media_next",
			Desc: "Skips to the next track or video.",
			Run: func(ctx context.Context, args map[string]any) (string, error) {
				if err := deps.CommandContext(ctx, "playerctl", "next").Run(); err != nil {
					return "", fmt.Errorf("media control failed: %w", err)
				}
				return "Skipped to next track.", nil
			},
		},
		{
			Name: "media_previous",
			Desc: "Goes back to the previous track or video.",
			Run: func(ctx context.Context, args map[string]any) (string, error) {
				if err := deps.CommandContext(ctx, "playerctl", "previous").Run(); err != nil {
					return "", fmt.Errorf("media control failed: %w", err)
				}
				return "Went back to previous track.", nil
			},
		},
		{
			Name: "search_knowledge_base",
			Desc: "Searches the personal knowledge base for facts like WiFi passwords, pet names or favorites. 'query' is the keywords to search for.",
			Params: map[string]Param{
				"query": {Type: TypeString, Desc: "keywords to search for", Required: true},
			},
			Run: func(ctx context.Context, args map[string]any) (string, error) {
				return searchKnowledge(ctx, deps.Knowledge, stringArg(args, "query"))
			},
		},
		{
			Name: "get_current_time",
			Desc: "Returns the current date and time.",
			Run: func(ctx context.Context, args map[string]any) (string, error) {
				return deps.Now().Format("Monday, January 2, 2006 at 3:04 PM"), nil
			},
		},
		{
			Name: "get_weather",
			Desc: "Gets the current weather for a city. 'city' is the city name, e.g. 'London'.",
			Params: map[string]Param{
				"city": {Type: TypeString, Desc: "city name", Required: true},
			},
			Run: func(ctx context.Context, args map[string]any) (string, error) {
				return fetchWeather(ctx, deps, stringArg(args, "city"))
			},
		},
		{
			Name: "write_to_screen",
			Desc: "Types or pastes text into the currently active window. Best for code, essays or messages.",
			Params: map[string]Param{
				"text": {Type: TypeString, Desc: "text to paste", Required: true},
			},
			Run: func(ctx context.Context, args map[string]any) (string, error) {
				return ghostWrite(ctx, deps, stringArg(args, "text"))
			},
		},
		{
			Name: "take_screenshot",
			Desc: "Captures the screen and returns the image as a data URL for vision analysis.",
			Run: func(ctx context.Context, args map[string]any) (string, error) {
				return captureScreen(ctx, deps)
			},
		},
	}

	for _, t := range set {
		if err := r.Register(t); err != nil {
			return err
		}
	}
	return nil
}

func stringArg(args map[string]any, name string) string {
	v, _ := args[name].(string)
	return strings.TrimSpace(v)
}

// appAliases maps spoken app names to executables. Lookup is strict: names
// outside the map are rejected rather than passed to the shell.
var appAliases = map[string]string{
	"chrome":     "google-chrome",
	"firefox":    "firefox",
	"files":      "nautilus",
	"terminal":   "x-terminal-emulator",
	"calculator": "gnome-calculator",
	"editor":     "gedit",
	"vscode":     "code",
	"spotify":    "spotify",
	"vlc":        "vlc",
	"steam":      "steam",
	"discord":    "discord",
}

func openApplication(ctx context.Context, deps BuiltinDeps, name string) (string, error) {
	key := strings.ToLower(name)
	target, ok := appAliases[key]
	if !ok {
		return "", fmt.Errorf("%q not found in installed apps or system map", name)
	}

	if _, err := exec.LookPath(target); err != nil {
		return "", fmt.Errorf("failed to launch %s: executable %q not found in PATH", name, target)
	}
	if err := deps.CommandContext(ctx, target).Start(); err != nil {
		return "", fmt.Errorf("failed to launch %s: %w", name, err)
	}
	return fmt.Sprintf("Successfully launched %s.", name), nil
}

func systemVolume(ctx context.Context, deps BuiltinDeps, action string) (string, error) {
	var args []string
	var done string
	switch action {
	case "up":
		args = []string{"set-sink-volume", "@DEFAULT_SINK@", "+5%"}
		done = "Volume turned up."
	case "down":
		args = []string{"set-sink-volume", "@DEFAULT_SINK@", "-5%"}
		done = "Volume turned down."
	case "mute":
		args = []string{"set-sink-mute", "@DEFAULT_SINK@", "toggle"}
		done = "Volume muted."
	default:
		return fmt.Sprintf("Unknown volume action: %s. Use 'up', 'down', or 'mute'.", action), nil
	}

	if err := deps.CommandContext(ctx, "pactl", args...).Run(); err != nil {
		return "", fmt.Errorf("volume control failed: %w", err)
	}
	return done, nil
}

func searchKnowledge(ctx context.Context, kb KnowledgeSearcher, query string) (string, error) {
	if kb == nil {
		return "Knowledge base not configured.", nil
	}
	lines, err := kb.Search(ctx, query)
	if err != nil {
		return "", fmt.Errorf("error accessing knowledge base: %w", err)
	}
	if len(lines) == 0 {
		return fmt.Sprintf("No information found in knowledge base for: %s", query), nil
	}
	return "From your knowledge base:\n" + strings.Join(lines, "\n"), nil
}

type weatherPayload struct {
	Cod     json.Number `json:"cod"`
	Message string      `json:"message"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity int     `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

func fetchWeather(ctx context.Context, deps BuiltinDeps, city string) (string, error) {
	apiKey := deps.WeatherAPIKey
	if apiKey == "" {
		apiKey = strings.TrimSpace(os.Getenv("OPENWEATHER_API_KEY"))
	}
	if apiKey == "" {
		return "", fmt.Errorf("weather API key not configured")
	}

	endpoint := "https://api.openweathermap.org/data/2.5/weather?" + url.Values{
		"q":     {city},
		"appid": {apiKey},
		"units": {"metric"},
	}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	resp, err := deps.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("weather request failed: %w", err)
	}
	defer resp.Body.Close()

	var payload weatherPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("weather response malformed: %w", err)
	}
	if code, _ := payload.Cod.Int64(); code != http.StatusOK {
		return "", fmt.Errorf("error fetching weather: %s", payload.Message)
	}
	if len(payload.Weather) == 0 {
		return "", fmt.Errorf("weather response missing conditions")
	}

	return fmt.Sprintf("Current weather in %s: %s. Temperature: %.1f°C. Humidity: %d%%. Wind: %.1f m/s.",
		city, payload.Weather[0].Description, payload.Main.Temp, payload.Main.Humidity, payload.Wind.Speed), nil
}

// ghostWrite copies the text to the clipboard and simulates a paste into
// the focused window. Pasting preserves indentation where simulated typing
// would not.
func ghostWrite(ctx context.Context, deps BuiltinDeps, text string) (string, error) {
	copyCmd := deps.CommandContext(ctx, "xclip", "-selection", "clipboard")
	copyCmd.Stdin = strings.NewReader(text)
	if err := copyCmd.Run(); err != nil {
		return "", fmt.Errorf("clipboard copy failed: %w", err)
	}

	// Short delay so the user can focus the target field.
	select {
	case <-time.After(500 * time.Millisecond):
	case <-ctx.Done():
		return "", ctx.Err()
	}

	if err := deps.CommandContext(ctx, "xdotool", "key", "ctrl+v").Run(); err != nil {
		return "", fmt.Errorf("paste keystroke failed: %w", err)
	}
	return "Text pasted successfully.", nil
}

func captureScreen(ctx context.Context, deps BuiltinDeps) (string, error) {
	tmp, err := os.CreateTemp("", "steward-shot-*.png")
	if err != nil {
		return "", err
	}
	path := tmp.Name()
	tmp.Close()
	defer os.Remove(path)

	if err := deps.CommandContext(ctx, "scrot", "--overwrite", path).Run(); err != nil {
		return "", fmt.Errorf("screen capture failed: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return dataURL(data), nil
}
