// Command vocablink-seed populates a fresh database with a small
// multilingual starter graph. It is an ordinary caller of the
// repository factory methods, inserting both directions for the
// symmetric "means" relation.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/vocablink/vocablink/pkg/graph"
	"github.com/vocablink/vocablink/pkg/models"
	"github.com/vocablink/vocablink/pkg/storage"
)

type seedWord struct {
	lang  string
	pos   string
	means []string
}

// seedData mirrors the "I"/"you" pronoun clusters across the canonical
// languages; each means entry links word -> meaning both ways.
var seedData = map[string]seedWord{
	"ผม":  {lang: "Thai", pos: "Pronoun", means: []string{"i", "我", "僕", "ich", "je", "저", "אני"}},
	"ฉัน":  {lang: "Thai", pos: "Pronoun", means: []string{"i", "我", "私", "ich", "je", "저", "אני"}},
	"i":   {lang: "English", pos: "Pronoun", means: []string{"我", "私", "僕", "ich", "je", "나", "저", "אני"}},
	"我":   {lang: "Chinese", pos: "Pronoun", means: []string{"私", "僕", "ich", "je", "나", "저", "אני"}},
	"僕":   {lang: "Japanese", pos: "Pronoun", means: []string{"ich", "je", "저", "אני"}},
	"私":   {lang: "Japanese", pos: "Pronoun", means: []string{"ich", "je", "저", "אני"}},
	"ich": {lang: "German", pos: "Pronoun", means: []string{"je", "나", "저", "אני"}},
	"je":  {lang: "French", pos: "Pronoun", means: []string{"나", "저", "אני"}},
	"나":   {lang: "Korean", pos: "Pronoun", means: []string{"אני"}},
	"저":   {lang: "Korean", pos: "Pronoun", means: []string{"אני"}},
	"אני": {lang: "Hebrew", pos: "Pronoun", means: []string{}},
}

func main() {
	dbPath := flag.String("db", "vocab.db", "path to the database file")
	flag.Parse()

	logger := zerolog.New(os.Stdout).With().
		Timestamp().
		Logger().
		Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	store, err := storage.NewSQLiteStore(*dbPath, storage.DefaultSQLiteConfig())
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open database")
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	repo := graph.New(store, logger)
	if err := repo.Init(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize repository")
	}

	existing, err := store.CountNodesByType(ctx, models.NodeWord)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to count words")
	}
	if existing > 0 {
		logger.Info().Int("words", existing).Msg("Database already has word data, nothing to do")
		return
	}

	wordIDs := make(map[string]string, len(seedData))
	for word := range seedData {
		node, err := repo.CreateNewNode(ctx, models.NodeWord, word)
		if err != nil {
			logger.Fatal().Err(err).Str("word", word).Msg("Failed to create word")
		}
		wordIDs[word] = node.ID
	}

	edgeCount := 0
	for word, info := range seedData {
		wordID := wordIDs[word]

		langID, ok := repo.LanguageID(info.lang)
		if !ok {
			logger.Fatal().Str("language", info.lang).Msg("Unknown language")
		}
		if _, err := repo.CreateNewEdge(ctx, models.EdgeIsLanguage, wordID, langID); err != nil {
			logger.Fatal().Err(err).Msg("Failed to create language edge")
		}
		edgeCount++

		posID, ok := repo.POSID(info.pos)
		if !ok {
			logger.Fatal().Str("pos", info.pos).Msg("Unknown part of speech")
		}
		if _, err := repo.CreateNewEdge(ctx, models.EdgeIsPOS, wordID, posID); err != nil {
			logger.Fatal().Err(err).Msg("Failed to create POS edge")
		}
		edgeCount++

		for _, meaning := range info.means {
			meaningID, ok := wordIDs[meaning]
			if !ok {
				continue
			}
			// "means" is symmetric: insert both directions
			if _, err := repo.CreateNewEdge(ctx, models.EdgeMeans, wordID, meaningID); err != nil {
				logger.Fatal().Err(err).Msg("Failed to create means edge")
			}
			if _, err := repo.CreateNewEdge(ctx, models.EdgeMeans, meaningID, wordID); err != nil {
				logger.Fatal().Err(err).Msg("Failed to create reverse means edge")
			}
			edgeCount += 2
		}
	}

	logger.Info().
		Int("words", len(wordIDs)).
		Int("edges", edgeCount).
		Msg("Seed completed")
}
