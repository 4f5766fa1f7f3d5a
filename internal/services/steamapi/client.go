package steamapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"autocrack/internal/config"
	"autocrack/internal/emuconfig"
	"autocrack/internal/logging"
	"autocrack/internal/services"
)

const stage = "remote_lookup"

// HTTPDoer describes the HTTP client used by the lookups.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Endpoints holds base URLs and credentials.
type Endpoints struct {
	StoreURL    string
	WebAPIURL   string
	SteamCMDURL string
	APIKey      string
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient injects the HTTP client (primarily for tests).
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.http = doer
		}
	}
}

// WithInfoCache shares an app info cache across lookups.
func WithInfoCache(cache *InfoCache) Option {
	return func(c *Client) {
		if cache != nil {
			c.cache = cache
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// Client performs the remote metadata lookups.
type Client struct {
	endpoints Endpoints
	http      HTTPDoer
	cache     *InfoCache
	logger    *slog.Logger
}

// New constructs a client for endpoints.
func New(endpoints Endpoints, opts ...Option) *Client {
	endpoints.StoreURL = strings.TrimRight(endpoints.StoreURL, "/")
	endpoints.WebAPIURL = strings.TrimRight(endpoints.WebAPIURL, "/")
	endpoints.SteamCMDURL = strings.TrimRight(endpoints.SteamCMDURL, "/")
	c := &Client{
		endpoints: endpoints,
		http:      http.DefaultClient,
		cache:     NewInfoCache(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.NewComponentLogger(c.logger, "steamapi")
	return c
}

// NewFromConfig builds a client from the [steam] section.
func NewFromConfig(cfg *config.Config, opts ...Option) *Client {
	base := []Option{WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout()})}
	return New(Endpoints{
		StoreURL:    cfg.Steam.StoreURL,
		WebAPIURL:   cfg.Steam.WebAPIURL,
		SteamCMDURL: cfg.Steam.SteamCMDURL,
		APIKey:      cfg.Steam.WebAPIKey,
	}, append(base, opts...)...)
}

func (c *Client) getJSON(ctx context.Context, operation, rawURL string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, stage, operation, "build request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, stage, operation, "request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return services.Wrap(services.ErrTransient, stage, operation, "unexpected response",
			fmt.Errorf("HTTP status %d", resp.StatusCode))
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return services.Wrap(services.ErrTransient, stage, operation, "read body", err)
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return services.Wrap(services.ErrSerialization, stage, operation, "decode response", err)
	}
	return nil
}

type storeApp struct {
	Success bool `json:"success"`
	Data    *struct {
		Name string   `json:"name"`
		DLC  []uint32 `json:"dlc"`
	} `json:"data"`
}

func (c *Client) appDetails(ctx context.Context, appID string) (*storeApp, error) {
	q := url.Values{"appids": {appID}, "l": {"english"}}
	var payload map[string]storeApp
	if err := c.getJSON(ctx, "store_appdetails", c.endpoints.StoreURL+"/api/appdetails?"+q.Encode(), &payload); err != nil {
		return nil, err
	}
	app, ok := payload[appID]
	if !ok || !app.Success || app.Data == nil {
		return nil, nil
	}
	return &app, nil
}

// DLCs returns the app's DLC ids with their store names. DLCs without a name
// are skipped.
func (c *Client) DLCs(ctx context.Context, appID string) ([]emuconfig.DLC, error) {
	app, err := c.appDetails(ctx, appID)
	if err != nil {
		return nil, err
	}
	if app == nil {
		return nil, nil
	}
	var dlcs []emuconfig.DLC
	for _, id := range app.Data.DLC {
		dlcID := strconv.FormatUint(uint64(id), 10)
		detail, err := c.appDetails(ctx, dlcID)
		if err != nil {
			return nil, fmt.Errorf("dlc %s: %w", dlcID, err)
		}
		if detail == nil || strings.TrimSpace(detail.Data.Name) == "" {
			c.logger.Debug("skipping dlc without a name", logging.String("dlc_id", dlcID))
			continue
		}
		dlcs = append(dlcs, emuconfig.DLC{ID: dlcID, Name: detail.Data.Name})
	}
	return dlcs, nil
}

type steamCMDResponse struct {
	Data map[string]struct {
		Depots map[string]any `json:"depots"`
		Common struct {
			Languages map[string]any `json:"languages"`
		} `json:"common"`
	} `json:"data"`
}

func (c *Client) appInfo(ctx context.Context, appID string) (*AppInfo, error) {
	return c.cache.Get(ctx, appID, func(ctx context.Context) (*AppInfo, error) {
		var payload steamCMDResponse
		if err := c.getJSON(ctx, "steamcmd_info", c.endpoints.SteamCMDURL+"/info/"+url.PathEscape(appID), &payload); err != nil {
			return nil, err
		}
		info := &AppInfo{Depots: map[string]any{}, Languages: map[string]string{}}
		app, ok := payload.Data[appID]
		if !ok {
			return info, nil
		}
		if app.Depots != nil {
			info.Depots = app.Depots
		}
		for lang, flag := range app.Common.Languages {
			info.Languages[lang] = fmt.Sprint(flag)
		}
		return info, nil
	})
}

// Depots returns the app's numeric depot ids in ascending order. Non-numeric
// keys such as "branches" are ignored.
func (c *Client) Depots(ctx context.Context, appID string) ([]string, error) {
	info, err := c.appInfo(ctx, appID)
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(info.Depots))
	for key := range info.Depots {
		id, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	depots := make([]string, len(ids))
	for i, id := range ids {
		depots[i] = strconv.FormatUint(id, 10)
	}
	return depots, nil
}

// Languages returns the app's supported languages, lower-cased and sorted,
// or just english when none are listed.
func (c *Client) Languages(ctx context.Context, appID string) ([]string, error) {
	info, err := c.appInfo(ctx, appID)
	if err != nil {
		return nil, err
	}
	lower := cases.Lower(language.Und)
	var langs []string
	for lang, flag := range info.Languages {
		flag = lower.String(strings.TrimSpace(flag))
		if flag == "1" || flag == "true" {
			langs = append(langs, lower.String(strings.TrimSpace(lang)))
		}
	}
	if len(langs) == 0 {
		return []string{"english"}, nil
	}
	sort.Strings(langs)
	return langs, nil
}

// Schema is the achievement and stat definition of a game.
type Schema struct {
	Achievements []emuconfig.Achievement
	Stats        []emuconfig.Stat
}

const noDescription = "No description available"

type schemaResponse struct {
	Game struct {
		AvailableGameStats struct {
			Achievements []struct {
				Name         string  `json:"name"`
				DisplayName  string  `json:"displayName"`
				Hidden       int     `json:"hidden"`
				Description  *string `json:"description"`
				Icon         string  `json:"icon"`
				IconGray     string  `json:"icongray"`
				DefaultValue int     `json:"defaultvalue"`
			} `json:"achievements"`
			Stats []struct {
				Name         string `json:"name"`
				DefaultValue int    `json:"defaultvalue"`
				DisplayName  string `json:"displayName"`
			} `json:"stats"`
		} `json:"availableGameStats"`
	} `json:"game"`
}

// HasAPIKey reports whether Schema can query the Web API.
func (c *Client) HasAPIKey() bool {
	return c.endpoints.APIKey != ""
}

// Schema fetches the achievement schema in lang. Without an API key it logs a
// warning and returns an empty schema.
func (c *Client) Schema(ctx context.Context, appID, lang string) (Schema, error) {
	if !c.HasAPIKey() {
		logging.WarnWithContext(logging.WithContext(ctx, c.logger), "no steam web api key configured", "achievements_skipped",
			logging.String("app_id", appID),
			logging.String(logging.FieldErrorHint, "set steam.web_api_key or STEAM_API_KEY"),
			logging.String(logging.FieldImpact, "achievements.json and stats.json are written empty"),
		)
		return Schema{}, nil
	}
	if lang == "" {
		lang = "english"
	}
	q := url.Values{"key": {c.endpoints.APIKey}, "appid": {appID}, "l": {lang}}
	var payload schemaResponse
	if err := c.getJSON(ctx, "webapi_schema", c.endpoints.WebAPIURL+"/ISteamUserStats/GetSchemaForGame/v2/?"+q.Encode(), &payload); err != nil {
		return Schema{}, err
	}

	var schema Schema
	for _, ach := range payload.Game.AvailableGameStats.Achievements {
		description := noDescription
		if ach.Description != nil && *ach.Description != "" {
			description = *ach.Description
		}
		schema.Achievements = append(schema.Achievements, emuconfig.Achievement{
			Name:        ach.Name,
			DisplayName: ach.DisplayName,
			Description: description,
			Hidden:      ach.Hidden != 0,
			Icon:        ach.Icon,
			IconGray:    ach.IconGray,
		})
	}
	for _, stat := range payload.Game.AvailableGameStats.Stats {
		schema.Stats = append(schema.Stats, emuconfig.Stat{
			Name:    stat.Name,
			Type:    "int",
			Default: stat.DefaultValue,
			Global:  0,
		})
	}
	return schema, nil
}

// iconTimeout bounds each icon download.
const iconTimeout = 30 * time.Second
