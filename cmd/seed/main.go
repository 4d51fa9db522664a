// Command seed resets the database and fills it with demo data.
//
// Usage:
//
//	go run ./cmd/seed [-posts 5] [-days 7] [-seed 42]
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"time"

	"socialfeed/cache"
	"socialfeed/config"
	"socialfeed/database"
	"socialfeed/logging"
	"socialfeed/repositories"
	"socialfeed/seed"
	"socialfeed/services"

	"go.mongodb.org/mongo-driver/bson"
)

var collections = []string{
	database.UsersCollection,
	database.PostsCollection,
	database.CommentsCollection,
	database.CategoriesCollection,
	database.HistoryCollection,
}

type options struct {
	postsPerUser int
	days         int
	seed         uint64
}

func main() {
	var opts options
	flag.IntVar(&opts.postsPerUser, "posts", 5, "Posts per user")
	flag.IntVar(&opts.days, "days", 7, "Spread post timestamps over this many days")
	flag.Uint64Var(&opts.seed, "seed", 0, "Random seed (0 picks one from the clock)")
	flag.Parse()

	config.LoadDotEnv()
	cfg, err := config.LoadTool()
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(1)
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: "console"})

	if err := run(cfg, opts); err != nil {
		logging.Fatal().Err(err).Msg("Seeding failed")
	}
	fmt.Printf("Every account uses the password %q (admin: %q)\n", seed.Password, "admin")
}

func run(cfg *config.Config, opts options) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	client, err := database.Connect(ctx, cfg.MongoURI, 3)
	if err != nil {
		return fmt.Errorf("connect to MongoDB: %w", err)
	}
	defer database.Disconnect(client)
	db := client.Database(cfg.DBName)

	for _, name := range collections {
		res, err := db.Collection(name).DeleteMany(ctx, bson.M{})
		if err != nil {
			return fmt.Errorf("reset %s: %w", name, err)
		}
		logging.Info().Str("collection", name).Int64("deleted", res.DeletedCount).Msg("Collection cleared")
	}
	database.EnsureIndexes(ctx, db)

	if opts.seed == 0 {
		opts.seed = uint64(time.Now().UnixNano())
	}
	store := repositories.NewMongoStore(db)
	sum, err := seed.Run(ctx, store, seed.Options{
		PostsPerUser: opts.postsPerUser,
		Window:       time.Duration(opts.days) * 24 * time.Hour,
		Rand:         rand.New(rand.NewPCG(opts.seed, opts.seed)),
	})
	if err != nil {
		return err
	}

	var c cache.Cache = cache.NewMemory()
	if cfg.RedisAddr != "" {
		if rc, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB); err == nil {
			defer rc.Close()
			c = cache.NewRedis(rc, "socialfeed:")
		} else {
			logging.Warn().Err(err).Msg("Redis unavailable, cached categories not flushed")
		}
	}
	svc := services.New(services.Deps{Store: store, Cache: c})
	if err := svc.Directory.ResetCategories(ctx); err != nil {
		logging.Warn().Err(err).Msg("Failed to flush cached categories")
	}

	logging.Info().Uint64("seed", opts.seed).Msg("Seed complete: " + sum.String())
	return nil
}
