package main

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"golang.org/x/exp/slog"

	"ytbucket"
	"ytbucket/config"
	"ytbucket/duration"
	ythttp "ytbucket/http"
	"ytbucket/internal/storage"
	"ytbucket/pipeline"
	"ytbucket/sink"
	"ytbucket/youtube"
)

type syncCommand struct {
	app *app

	JSON        string `long:"json" description:"Write a JSON document to this path"`
	CSV         string `long:"csv" description:"Write one CSV file per bucket into this directory"`
	Sheets      bool   `long:"sheets" description:"Write one tab per bucket to the spreadsheet"`
	Spreadsheet string `long:"spreadsheet" description:"Spreadsheet id or URL"`
	Credentials string `long:"credentials" description:"Service account JSON file for Sheets"`
	SQLDriver   string `long:"sql-driver" choice:"sqlite" choice:"postgres" description:"Record the run in a SQL database"`
	SQLDSN      string `long:"sql-dsn" description:"SQL data source name"`
	Cache       string `long:"cache" description:"Snapshot file for the raw fetch"`
	Offline     bool   `long:"offline" description:"Rebuild rows from the snapshot without network access"`
}

func (c *syncCommand) Execute(args []string) error {
	a := c.app
	cfg, err := a.loadConfig(func(cfg *config.Config) {
		setString(&cfg.JSONPath, c.JSON)
		setString(&cfg.CSVDir, c.CSV)
		setString(&cfg.SpreadsheetID, c.Spreadsheet)
		setString(&cfg.CredentialsFile, c.Credentials)
		setString(&cfg.SQLDriver, c.SQLDriver)
		setString(&cfg.SQLDSN, c.SQLDSN)
		setString(&cfg.CachePath, c.Cache)
	})
	if err != nil {
		return err
	}
	if err := cfg.ValidateSync(c.Offline); err != nil {
		return err
	}

	sinks, closeSinks, err := a.buildSinks(cfg, c.Sheets)
	if err != nil {
		return err
	}
	defer closeSinks()
	if len(sinks) == 0 {
		a.logger.Warn("no sink configured, rows are computed but not written")
	}

	syncer, err := a.buildSyncer(cfg, c.Offline)
	if err != nil {
		return err
	}
	syncer.Sinks = sinks

	table, err := syncer.Run(a.ctx, cfg.PlaylistID)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Synced %d videos from %s (run %s)\n", len(table.Rows), table.PlaylistID, table.RunID)
	return nil
}

type listCommand struct {
	app *app

	Bucket  string `short:"b" long:"bucket" description:"Only print this bucket (e.g. 10-20min)"`
	Cache   string `long:"cache" description:"Snapshot file for the raw fetch"`
	Offline bool   `long:"offline" description:"Read the snapshot instead of the network"`
}

func (c *listCommand) Execute(args []string) error {
	a := c.app
	cfg, err := a.loadConfig(func(cfg *config.Config) {
		setString(&cfg.CachePath, c.Cache)
	})
	if err != nil {
		return err
	}
	if err := cfg.ValidateSync(c.Offline); err != nil {
		return err
	}
	if c.Bucket != "" && !duration.Bucket(c.Bucket).Valid() {
		return fmt.Errorf("unknown bucket %q", c.Bucket)
	}

	syncer, err := a.buildSyncer(cfg, c.Offline)
	if err != nil {
		return err
	}
	table, err := syncer.Run(a.ctx, cfg.PlaylistID)
	if err != nil {
		return err
	}

	printTable(a, table, duration.Bucket(c.Bucket))
	return nil
}

func printTable(a *app, table *sink.Table, only duration.Bucket) {
	w := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "BUCKET\tDURATION\tTITLE\tCHANNEL\tVIEWS\tPUBLISHED")

	for _, b := range duration.Buckets() {
		if only != "" && b != only {
			continue
		}
		for _, r := range table.Index[b] {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				b,
				r.Duration,
				truncate(r.Title, 50),
				truncate(r.Channel, 30),
				strconv.FormatUint(r.Views, 10),
				strings.TrimPrefix(r.PublishedAt, "'"),
			)
		}
	}
	w.Flush()

	fmt.Fprintf(a.stderr, "\nTotal: %d videos\n", len(table.Rows))
}

type exportCommand struct {
	app *app

	Spreadsheet string `long:"spreadsheet" description:"Spreadsheet id or URL"`
	Credentials string `long:"credentials" description:"Service account JSON file"`
	Range       string `long:"range" default:"AllVideos!A1:M" description:"A1 range to read"`
	JSON        string `long:"json" description:"Write the values as JSON to this path"`
	CSV         string `long:"csv" description:"Write the values as CSV to this path"`
}

func (c *exportCommand) Execute(args []string) error {
	a := c.app
	cfg, err := a.loadConfig(func(cfg *config.Config) {
		setString(&cfg.SpreadsheetID, c.Spreadsheet)
		setString(&cfg.CredentialsFile, c.Credentials)
	})
	if err != nil {
		return err
	}
	if cfg.SpreadsheetID == "" {
		return fmt.Errorf("spreadsheet id is required (set SPREADSHEET_ID)")
	}
	if c.JSON == "" && c.CSV == "" {
		c.JSON = "data/videos.json"
	}

	sheets, err := sink.NewSheets(a.ctx, sheetsOptions(cfg), a.logger)
	if err != nil {
		return err
	}
	values, err := sheets.ReadRange(a.ctx, c.Range)
	if err != nil {
		return err
	}
	if len(values) == 0 {
		a.logger.Warn("range is empty", slog.String("range", c.Range))
	}

	if c.JSON != "" {
		if err := sink.WriteValuesJSON(c.JSON, values); err != nil {
			return err
		}
		a.logger.Info("export written", slog.String("path", c.JSON), slog.Int("rows", len(values)))
	}
	if c.CSV != "" {
		if err := sink.WriteValuesCSV(c.CSV, values); err != nil {
			return err
		}
		a.logger.Info("export written", slog.String("path", c.CSV), slog.Int("rows", len(values)))
	}
	return nil
}

// loadConfig loads file and environment settings, then applies global and
// command flags on top.
func (a *app) loadConfig(apply func(*config.Config)) (*config.Config, error) {
	cfg, err := config.Load(a.opts.Config)
	if err != nil {
		return nil, err
	}

	o := a.opts
	setString(&cfg.APIKey, o.APIKey)
	setString(&cfg.PlaylistID, o.Playlist)
	if o.Feed {
		cfg.Source = config.SourceFeed
	}
	if o.MaxAttempts > 0 {
		cfg.MaxAttempts = o.MaxAttempts
	}
	if o.RequestsPerSecond > 0 {
		cfg.RequestsPerSecond = o.RequestsPerSecond
	}
	if o.DescriptionLimit > 0 {
		cfg.DescriptionLimit = o.DescriptionLimit
	}
	if len(o.Columns) > 0 {
		cfg.Columns = o.Columns
	}
	if o.Debug {
		cfg.Debug = true
	}
	if apply != nil {
		apply(cfg)
	}

	a.setupLogger(cfg.Debug)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (a *app) buildSyncer(cfg *config.Config, offline bool) (*ytbucket.Syncer, error) {
	columns, err := pipeline.ParseColumns(cfg.Columns)
	if err != nil {
		return nil, err
	}
	syncer := &ytbucket.Syncer{
		Options: pipeline.Options{Columns: columns, DescriptionLimit: cfg.DescriptionLimit},
		Logger:  a.logger,
	}
	if cfg.CachePath != "" {
		syncer.Snapshots = storage.NewSnapshotStore(cfg.CachePath)
	}

	var client *youtube.APIClient
	if cfg.APIKey != "" && !offline {
		client, err = youtube.NewAPIClient(a.ctx, youtube.ClientOptions{
			APIKey:            cfg.APIKey,
			Timeout:           cfg.RequestTimeout,
			RequestsPerSecond: cfg.RequestsPerSecond,
			Endpoint:          cfg.APIEndpoint,
			Logger:            a.logger,
		})
		if err != nil {
			return nil, err
		}
	}

	switch {
	case offline:
		syncer.Avatars = youtube.NewAvatarCache(nil, a.logger)
		syncer.Source = &ytbucket.SnapshotSource{Store: syncer.Snapshots, Avatars: syncer.Avatars}
	case cfg.Source == config.SourceFeed:
		if client != nil {
			syncer.Avatars = youtube.NewAvatarCache(client, a.logger)
		}
		feedTransport := ythttp.NewTransport(ythttp.DefaultTransportConfig(), a.logger)
		syncer.Source = youtube.NewFeedSource(feedTransport.Client(cfg.RequestTimeout), cfg.Retry(), a.logger)
	default:
		policy := cfg.Retry()
		syncer.Avatars = youtube.NewAvatarCache(client, a.logger)
		syncer.Source = &ytbucket.APISource{
			Fetcher:  youtube.NewFetcher(client, policy, a.logger),
			Resolver: youtube.NewResolver(client, policy, a.logger),
		}
	}
	return syncer, nil
}

// buildSinks opens every configured sink. The returned func closes the
// ones holding resources.
func (a *app) buildSinks(cfg *config.Config, sheets bool) ([]sink.Sink, func(), error) {
	var (
		sinks   []sink.Sink
		closers []func() error
	)
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	if cfg.JSONPath != "" {
		sinks = append(sinks, sink.NewJSON(cfg.JSONPath))
	}
	if cfg.CSVDir != "" {
		sinks = append(sinks, sink.NewCSV(cfg.CSVDir))
	}
	if sheets {
		if cfg.SpreadsheetID == "" {
			return nil, closeAll, fmt.Errorf("--sheets requires a spreadsheet id (set SPREADSHEET_ID)")
		}
		s, err := sink.NewSheets(a.ctx, sheetsOptions(cfg), a.logger)
		if err != nil {
			return nil, closeAll, err
		}
		sinks = append(sinks, s)
	}
	if cfg.SQLDriver != "" {
		s, err := sink.OpenSQL(a.ctx, cfg.SQLDriver, cfg.SQLDSN, a.logger)
		if err != nil {
			return nil, closeAll, err
		}
		closers = append(closers, s.Close)
		sinks = append(sinks, s)
	}
	return sinks, closeAll, nil
}

func sheetsOptions(cfg *config.Config) sink.SheetsOptions {
	return sink.SheetsOptions{
		SpreadsheetID:   cfg.SpreadsheetID,
		CredentialsJSON: []byte(cfg.CredentialsJSON),
		CredentialsFile: cfg.CredentialsFile,
		APIKey:          cfg.APIKey,
		Retry:           cfg.Retry(),
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
