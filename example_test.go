package mediacache_test

import (
	"context"
	"fmt"
	"log"

	"github.com/fitstride/mediacache"
)

func ExampleNew() {
	cache, err := mediacache.New(
		mediacache.WithBudget(50 << 20),
		mediacache.WithCacheDir("./media"),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer cache.Close()

	content, err := cache.Get(context.Background(),
		"https://media.example.com/exercises/pushup.gif",
		mediacache.KindAnimation, mediacache.CategoryPrimaryDemo)
	if err != nil {
		log.Fatal(err)
	}

	switch content.Source {
	case mediacache.SourceFallback:
		fmt.Println("render from", content.URL)
	default:
		fmt.Println(len(content.Data), "bytes from", content.Source)
	}
}

func ExampleNewPreloader() {
	cache, err := mediacache.New(mediacache.WithBudget(100 << 20))
	if err != nil {
		log.Fatal(err)
	}
	defer cache.Close()

	pre, err := mediacache.NewPreloader(cache,
		mediacache.WithStrategy(mediacache.StrategyConservative),
	)
	if err != nil {
		log.Fatal(err)
	}

	assets := []mediacache.Asset{
		{ID: "pushup-01", AnimationURL: "https://media.example.com/exercises/pushup.gif"},
		{ID: "squat-01", AnimationURL: "https://media.example.com/exercises/squat.gif"},
	}
	pre.PreloadAssets(context.Background(), assets)

	stats := pre.Stats()
	fmt.Printf("completed=%d failed=%d\n", stats.Completed, stats.Failed)
}

func ExampleMediaCache_Stats() {
	cache, err := mediacache.New(mediacache.WithBudget(10 << 20))
	if err != nil {
		log.Fatal(err)
	}

	stats := cache.Stats()
	fmt.Printf("%d/%d bytes used\n", stats.CachedBytes, stats.BudgetBytes)
	// Output: 0/10485760 bytes used
}
