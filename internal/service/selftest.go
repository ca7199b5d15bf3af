package service

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"clearquest/internal/model"
	"clearquest/internal/repository"
)

// SelfTestResult reports structural readiness of each component without
// mutating any production data.
type SelfTestResult struct {
	Mongo     CheckResult `json:"mongo"`
	Redis     CheckResult `json:"redis"`
	Config    CheckResult `json:"config"`
	Mapping   CheckResult `json:"mapping"`
	Clarifier CheckResult `json:"clarifier"`
	FactModel CheckResult `json:"factModel"`
	OK        bool        `json:"ok"`
}

type CheckResult struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// SelfTest validates the wiring of every core component against fixture
// data. It is safe to run against a live deployment.
type SelfTest struct {
	mongoClient *mongo.Client
	redisClient *redis.Client
	configs     repository.ConfigRepo
}

// NewSelfTest creates the readiness harness
func NewSelfTest(mongoClient *mongo.Client, redisClient *redis.Client, configs repository.ConfigRepo) *SelfTest {
	return &SelfTest{mongoClient: mongoClient, redisClient: redisClient, configs: configs}
}

// Run executes every structural check.
func (s *SelfTest) Run(ctx context.Context) *SelfTestResult {
	result := &SelfTestResult{}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result.Mongo = check(func() error { return s.mongoClient.Ping(pingCtx, nil) })
	result.Redis = check(func() error { return s.redisClient.Ping(pingCtx).Err() })
	result.Config = check(func() error {
		_, err := s.configs.GetDiscretionConfig(ctx)
		return err
	})
	result.Mapping = checkMapping()
	result.Clarifier = checkClarifier()
	result.FactModel = checkFactModel()

	result.OK = result.Mongo.OK && result.Redis.OK && result.Config.OK &&
		result.Mapping.OK && result.Clarifier.OK && result.FactModel.OK
	return result
}

func check(fn func() error) CheckResult {
	if err := fn(); err != nil {
		return CheckResult{OK: false, Error: err.Error()}
	}
	return CheckResult{OK: true}
}

func checkMapping() CheckResult {
	if cat, ok := MapPackIDToCategory("PACK_DRIVING_DUIDWI_STANDARD"); !ok || cat != "DUI" {
		return CheckResult{Error: "mapping rules not resolving DUI pack"}
	}
	if _, ok := MapPackIDToCategory("PACK_UNKNOWN_THING"); ok {
		return CheckResult{Error: "unknown pack unexpectedly mapped"}
	}
	return CheckResult{OK: true}
}

func checkClarifier() CheckResult {
	c := NewClarifier(model.ClarifierGuardrails{MaxWords: 24, ForbidNarrative: true, ForbidEmotional: true})
	q, err := c.BuildMicroClarifier(model.FactAnchor{Key: "location", Priority: 1}, ClarifierContext{})
	if err != nil || q == "" {
		return CheckResult{Error: "micro clarifier generation failed"}
	}
	return CheckResult{OK: true}
}

func checkFactModel() CheckResult {
	fm := &model.FactModel{
		CategoryID:     "SELFTEST",
		MandatoryFacts: []model.FactKey{"date", "location"},
	}
	fs := model.NewFactState(fm)
	if len(model.MissingFacts(fm, fs)) != 2 {
		return CheckResult{Error: "fact state initialization incomplete"}
	}
	if model.CompletionPercent(fm, fs) != 0 {
		return CheckResult{Error: "completion percent wrong on empty state"}
	}
	return CheckResult{OK: true}
}
