// Package ytbucket syncs a YouTube playlist into duration-bucketed tables.
//
// Overview
//
// A sync run lists every item of a playlist, resolves video details in
// batches of 50, groups the videos by length and hands the result to one or
// more sinks:
//
//   - sink.JSON: a single JSON document with every bucket
//   - sink.CSV: one CSV file per bucket plus AllVideos.csv
//   - sink.Sheets: one spreadsheet tab per bucket plus AllVideos
//   - sink.SQL: a sync_run/video_row history in SQLite or PostgreSQL
//
// Quick Start
//
//	ctx := context.Background()
//	client, err := youtube.NewAPIClient(ctx, youtube.ClientOptions{APIKey: key})
//	if err != nil {
//		log.Fatal(err)
//	}
//	policy := retry.DefaultConfig()
//	syncer := &ytbucket.Syncer{
//		Source: &ytbucket.APISource{
//			Fetcher:  youtube.NewFetcher(client, policy, logger),
//			Resolver: youtube.NewResolver(client, policy, logger),
//		},
//		Avatars:  youtube.NewAvatarCache(client, logger),
//		Sinks:    []sink.Sink{sink.NewJSON("data/videos.json")},
//		Logger:   logger,
//	}
//	table, err := syncer.Run(ctx, "PLxxxxxxxxxxxx")
//
// Duration Buckets
//
// Videos are classified by total length with inclusive upper bounds:
// 0-5min, 5-10min, 10-20min, 20-30min, 30-40min, 40-50min, 50-60min and
// 60+min. Videos with a missing or unparseable duration land in unknown.
//
// Error Handling
//
// A playlist page that fails every retry aborts the run before any sink is
// written:
//
//	if errors.Is(err, ytbucket.ErrFetchExhausted) {
//		fmt.Println("could not retrieve playlist videos")
//	}
//
// Detail lookups that fail are not fatal. The affected videos get
// placeholder values and the unknown bucket.
//
// Configuration
//
// The config package loads settings from, in increasing priority:
//
//  1. Default values
//  2. Config file (ytbucket.yaml, ytbucket.yml or ytbucket.json in the
//     working directory or ~/.config/ytbucket/)
//  3. Environment variables (YOUTUBE_API_KEY, PLAYLIST_ID, SPREADSHEET_ID,
//     SERVICE_ACCOUNT_JSON and YTBUCKET_*)
//  4. Command-line flags
package ytbucket
