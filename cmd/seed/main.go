package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"clearquest/internal/model"
	"clearquest/internal/repository"
)

func main() {
	mongoURI := os.Getenv("MONGO_URI")
	if mongoURI == "" {
		mongoURI = "mongodb://localhost:27017"
	}
	dbName := os.Getenv("MONGO_DATABASE")
	if dbName == "" {
		dbName = "clearquest"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(ctx)

	db := client.Database(dbName)

	seedFactModels(ctx, db)
	seedPacks(ctx, db)
	seedDiscretionConfig(ctx, db)

	fmt.Println("Seed complete")
}

func seedFactModels(ctx context.Context, db *mongo.Database) {
	repo := repository.NewFactModelRepo(db)

	factModels := []*model.FactModel{
		{
			CategoryID:        "DUI",
			CategoryLabel:     "Driving Under the Influence",
			MandatoryFacts:    []model.FactKey{"date", "location", "agency_name", "outcome"},
			OptionalFacts:     []model.FactKey{"bac_level", "vehicle_type"},
			SeverityFacts:     []model.FactKey{"outcome", "bac_level"},
			ReadyForAIProbing: true,
		},
		{
			CategoryID:        "DOMESTIC_VIOLENCE",
			CategoryLabel:     "Domestic Violence",
			MandatoryFacts:    []model.FactKey{"date", "location", "outcome", "parties_involved"},
			OptionalFacts:     []model.FactKey{"agency_name"},
			SeverityFacts:     []model.FactKey{"outcome"},
			ReadyForAIProbing: true,
		},
		{
			CategoryID:        "DRUG_USE",
			CategoryLabel:     "Drug Use",
			MandatoryFacts:    []model.FactKey{"substance", "last_use_date", "frequency"},
			OptionalFacts:     []model.FactKey{"context"},
			SeverityFacts:     []model.FactKey{"substance", "last_use_date"},
			ReadyForAIProbing: true,
		},
		{
			CategoryID:        "EMPLOYMENT_TERMINATION",
			CategoryLabel:     "Employment Termination",
			MandatoryFacts:    []model.FactKey{"employer_name", "month_year", "reason", "outcome"},
			OptionalFacts:     []model.FactKey{"supervisor_name"},
			SeverityFacts:     []model.FactKey{"reason"},
			ReadyForAIProbing: false,
		},
	}

	for _, fm := range factModels {
		existing, err := repo.GetByCategory(ctx, fm.CategoryID)
		if err != nil {
			log.Fatalf("Failed to check fact model %s: %v", fm.CategoryID, err)
		}
		if existing != nil {
			fmt.Printf("Fact model %s already exists, skipping\n", fm.CategoryID)
			continue
		}
		if _, err := repo.Create(ctx, fm); err != nil {
			log.Fatalf("Failed to create fact model %s: %v", fm.CategoryID, err)
		}
		fmt.Printf("Created fact model %s\n", fm.CategoryID)
	}
}

func seedPacks(ctx context.Context, db *mongo.Database) {
	repo := repository.NewPackRepo(db)

	packs := []*model.FollowUpPack{
		{
			PackID:     "PACK_DRIVING_DUIDWI_STANDARD",
			Title:      "DUI / DWI Standard Follow-Up",
			CategoryID: "DUI",
			FactAnchors: []model.FactAnchor{
				{Key: "date", Priority: 1},
				{Key: "location", Priority: 2},
				{Key: "agency_name", Priority: 3},
				{Key: "outcome", Priority: 4},
				{Key: "bac_level", Priority: 5},
			},
		},
		{
			PackID:     "PACK_VIOLENCE_DOMESTIC_STANDARD",
			Title:      "Domestic Violence Standard Follow-Up",
			CategoryID: "DOMESTIC_VIOLENCE",
			FactAnchors: []model.FactAnchor{
				{Key: "date", Priority: 1},
				{Key: "location", Priority: 2},
				{Key: "parties_involved", Priority: 3},
				{Key: "outcome", Priority: 4},
			},
		},
		{
			PackID:     "PACK_DRUGS_USE_STANDARD",
			Title:      "Drug Use Standard Follow-Up",
			CategoryID: "DRUG_USE",
			FactAnchors: []model.FactAnchor{
				{Key: "substance", Priority: 1},
				{Key: "last_use_date", Priority: 2},
				{Key: "frequency", Priority: 3},
			},
		},
		{
			PackID:     "PACK_EMPLOYMENT_TERMINATION_STANDARD",
			Title:      "Employment Termination Follow-Up",
			CategoryID: "EMPLOYMENT_TERMINATION",
			FactAnchors: []model.FactAnchor{
				{Key: "employer_name", Priority: 1, MultiInstanceAware: true},
				{Key: "month_year", Priority: 2},
				{Key: "reason", Priority: 3},
				{Key: "outcome", Priority: 4},
			},
		},
		{
			// No fact-model category resolves for this pack; sessions fall
			// back to the deterministic question flow.
			PackID: "PACK_RESIDENCE_HISTORY_STANDARD",
			Title:  "Residence History",
			Questions: []model.PackQuestion{
				{Code: "Q1", Prompt: "What was your address at that time?"},
				{Code: "Q2", Prompt: "When did you live there?"},
				{Code: "Q3", Prompt: "Who else lived at that address with you?"},
			},
		},
	}

	for _, p := range packs {
		if err := repo.Upsert(ctx, p); err != nil {
			log.Fatalf("Failed to upsert pack %s: %v", p.PackID, err)
		}
		fmt.Printf("Upserted pack %s\n", p.PackID)
	}
}

func seedDiscretionConfig(ctx context.Context, db *mongo.Database) {
	repo := repository.NewConfigRepo(db)

	cfg := model.DefaultDiscretionConfig()
	if err := repo.PutDiscretionConfig(ctx, cfg); err != nil {
		log.Fatalf("Failed to seed discretion config: %v", err)
	}
	fmt.Println("Seeded default discretion config")
}
