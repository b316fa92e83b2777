// Command figoql seeds an in-memory database and runs query strings through the
// users endpoint, printing the generated SQL, the Mongo find and the JSON result.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/bi0dread/figoql"
	"github.com/spf13/pflag"
	"go.mongodb.org/mongo-driver/bson"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var scenarios = []struct {
	title string
	query string
}{
	{"Partial filter", "filter[name]=ali&sort=name"},
	{"Exact list with dynamic operator", "filter[status]=active,pending&filter[age]=>=40&sort=-age"},
	{"Named scope and trashed rows", "filter[premium]=80&filter[trashed]=with&sort=-score"},
	{"Nested include with relation fields", "include=orders.product&fields[users]=id,name&fields[product]=id,name&page[size]=3"},
	{"Computed attributes", "append=displayName,orderCount&include=orders&page[size]=2"},
	{"Rejected sort", "sort=password"},
	{"Rejected include", "include=orders.user"},
}

func (User) QueryScopes() map[string]figoql.ScopeFunc {
	return map[string]figoql.ScopeFunc{
		"premium": func(db *gorm.DB, values ...any) *gorm.DB {
			threshold := any(90)
			if len(values) > 0 {
				threshold = values[0]
			}
			return db.Where("score >= ?", threshold).Where("status = ?", "active")
		},
	}
}

// listUsers is the users endpoint: everything a client may filter, sort, include,
// select and append is declared here.
func listUsers(db *gorm.DB, req *figoql.Request, opts ...figoql.Option) *figoql.Builder[User] {
	return figoql.New[User](db, req, opts...).
		AllowedFilters(
			figoql.Partial("name"),
			figoql.Partial("email"),
			figoql.Exact("status"),
			figoql.Exact("country"),
			figoql.Exact("category"),
			figoql.Operator("age", figoql.OperationDynamic),
			figoql.Operator("min_score", figoql.OperationGte, "score"),
			figoql.NamedScope("premium"),
			figoql.Trashed(),
		).
		AllowedSorts(figoql.Sorts("name", "age", "score", "created_at")...).
		AllowedIncludes("orders.product").
		AllowedFields("id", "name", "email", "age", "status", "score", "orders.*", "product.*").
		AllowedAppends("displayName", "orderCount")
}

func main() {
	if err := run(); err != nil {
		slog.Error("figoql error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	configPath := pflag.String("config", "", "Path to a figoql config file (yaml, json or toml)")
	dsn := pflag.String("dsn", "file::memory:?cache=shared", "SQLite DSN to seed and query")
	query := pflag.StringP("query", "q", "", "Query string to run, e.g. 'filter[name]=ali&sort=-age'; runs the built-in scenarios when empty")
	users := pflag.Int("users", 100, "Number of users to seed")
	logLevel := pflag.String("log-level", "info", "Log level: debug, info, warn, error")
	pflag.Parse()

	log := newLogger(*logLevel)
	slog.SetDefault(log)

	cfg, err := figoql.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(*dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	if err := seed(db, *users); err != nil {
		return err
	}
	slog.Info("database seeded", slog.Int("users", *users))

	if *query != "" {
		return runQuery(context.Background(), db, cfg, log, *query)
	}
	for i, s := range scenarios {
		fmt.Printf("\n=== %d: %s ===\n", i+1, s.title)
		if err := runQuery(context.Background(), db, cfg, log, s.query); err != nil {
			return err
		}
	}
	return nil
}

func runQuery(ctx context.Context, db *gorm.DB, cfg figoql.Config, log *slog.Logger, raw string) error {
	fmt.Printf("query: %s\n", raw)
	values, err := url.ParseQuery(raw)
	if err != nil {
		return fmt.Errorf("failed to parse query %q: %w", raw, err)
	}
	req := figoql.NewRequest(values, figoql.WithRequestConfig(cfg))
	b := listUsers(db, req, figoql.WithConfig(cfg), figoql.WithLogger(log))

	sql, err := b.ToSQL()
	if err != nil {
		fmt.Printf("rejected (%d): %v\n", figoql.StatusCode(err), err)
		return nil
	}
	fmt.Printf("gorm:  %s\n", sql)

	if rawSQL, args, err := b.ToRawSQL(); err == nil {
		fmt.Printf("raw:   %s %v\n", rawSQL, args)
	} else {
		fmt.Printf("raw:   unavailable: %v\n", err)
	}

	if filter, opts, err := b.MongoFind(); err == nil {
		ext, err := bson.MarshalExtJSON(filter, false, false)
		if err != nil {
			return fmt.Errorf("failed to render mongo filter: %w", err)
		}
		fmt.Printf("mongo: %s sort=%v projection=%v\n", ext, opts.Sort, opts.Projection)
	} else {
		fmt.Printf("mongo: unavailable: %v\n", err)
	}

	rs, err := b.Get(ctx)
	if err != nil {
		return fmt.Errorf("failed to run %q: %w", raw, err)
	}
	out, err := json.MarshalIndent(rs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	fmt.Printf("%d record(s):\n%s\n", rs.Len(), out)
	return nil
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn", "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}
