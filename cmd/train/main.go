// Command train asks the recommendation service to retrain its model and
// prints the resulting status.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"socialfeed/config"
	"socialfeed/database"
	"socialfeed/recommender"
	"socialfeed/repositories"
)

func main() {
	config.LoadDotEnv()
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadTool()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	client, err := database.Connect(ctx, cfg.MongoURI, 3)
	if err != nil {
		return err
	}
	defer database.Disconnect(client)

	users, err := repositories.NewMongoStore(client.Database(cfg.DBName)).Users.Count(ctx)
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if users == 0 {
		return fmt.Errorf("no users in %s; run cmd/seed first", cfg.DBName)
	}
	fmt.Printf("Found %d users\n", users)

	rec := recommender.NewClient(cfg.RecommendationURL)
	h, err := rec.Health(ctx)
	if err != nil {
		return fmt.Errorf("recommendation service at %s: %w", cfg.RecommendationURL, err)
	}
	fmt.Printf("Recommendation service: %s\n", h.Status)

	fmt.Println("Training model...")
	res, err := rec.Train(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Status: %s\n", res.Status)
	printCount("Total samples", res.TotalSamples)
	printCount("Positive samples", res.PositiveSamples)
	printCount("Negative samples", res.NegativeSamples)
	if res.Message != "" {
		fmt.Println(res.Message)
	}

	status, err := rec.ModelStatus(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Trained: %t, user features: %d, post features: %d\n", status.Trained, status.UserFeatures, status.PostFeatures)
	return nil
}

func printCount(label string, n *int) {
	if n != nil {
		fmt.Printf("%s: %d\n", label, *n)
	}
}
