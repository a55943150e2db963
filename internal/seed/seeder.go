// Package seed fills a database with fake creators, viral share chains and
// revenue, all written through the attribution engine.
package seed

import (
	"context"
	"fmt"
	"strings"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/zfogg/hypechain/backend/internal/engine"
	"github.com/zfogg/hypechain/backend/internal/logger"
	"github.com/zfogg/hypechain/backend/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var engagementTypes = []string{models.EngagementView, models.EngagementClick, models.EngagementShare}

// Options sizes a seeding run
type Options struct {
	Wallets           int
	Contents          int
	SharesPerContent  int
	Engagements       int
	Distributions     int
	DeleteProbability float64 // chance a leaf share is deleted afterwards
}

// DevOptions is a realistic development data set
func DevOptions() Options {
	return Options{
		Wallets:           60,
		Contents:          25,
		SharesPerContent:  30,
		Engagements:       1500,
		Distributions:     80,
		DeleteProbability: 0.05,
	}
}

// TestOptions is a small data set for integration tests
func TestOptions() Options {
	return Options{
		Wallets:          6,
		Contents:         3,
		SharesPerContent: 5,
		Engagements:      20,
		Distributions:    4,
	}
}

// Summary counts what a run created
type Summary struct {
	Contents      int
	Shares        int
	Engagements   int
	Distributions int
	DeletedShares int
	Lamports      int64
}

// Seeder handles database seeding operations
type Seeder struct {
	db     *gorm.DB
	engine *engine.Service
	faker  *gofakeit.Faker
}

// NewSeeder creates a new seeder. A zero seed picks a random one; any other
// value makes runs reproducible.
func NewSeeder(db *gorm.DB, svc *engine.Service, seed uint64) *Seeder {
	return &Seeder{db: db, engine: svc, faker: gofakeit.New(seed)}
}

// Seed creates content, grows a share chain under each one, then records
// engagements and distributions across them
func (s *Seeder) Seed(ctx context.Context, opts Options) (*Summary, error) {
	if opts.Wallets < 2 || opts.Contents < 1 {
		return nil, fmt.Errorf("seed needs at least 2 wallets and 1 content")
	}

	wallets := make([]string, opts.Wallets)
	for i := range wallets {
		wallets[i] = s.wallet()
	}

	summary := &Summary{}
	var contents []*models.Content
	var shares []*models.Share
	chains := make(map[string][]*models.Share)

	logger.Log.Info("Creating content and share chains...")
	for i := 0; i < opts.Contents; i++ {
		res, err := s.engine.CreateContent(ctx, engine.CreateContentInput{
			CreatorWallet: s.faker.RandomString(wallets),
			Title:         s.title(),
			MediaURL:      fmt.Sprintf("https://cdn.hypechain.example/%s.mp4", s.faker.UUID()),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to seed content: %w", err)
		}
		contents = append(contents, res.Content)
		chain := []*models.Share{res.Share}
		summary.Contents++
		summary.Shares++

		for j := 0; j < opts.SharesPerContent; j++ {
			parent := s.pickParent(chain)
			created, err := s.engine.CreateShare(ctx, engine.CreateShareInput{
				ContentID:     res.Content.ID,
				WalletAddress: s.faker.RandomString(wallets),
				ParentShareID: &parent.ID,
			})
			if err != nil {
				return nil, fmt.Errorf("failed to seed share: %w", err)
			}
			if created.IsNew {
				chain = append(chain, created.Share)
				summary.Shares++
			}
		}
		chains[res.Content.ID] = chain
		shares = append(shares, chain...)
	}

	logger.Log.Info("Recording engagements...")
	for i := 0; i < opts.Engagements; i++ {
		share := shares[s.faker.IntRange(0, len(shares)-1)]
		in := engine.RecordEngagementInput{
			ShareID:        share.ID,
			EngagementType: s.faker.RandomString(engagementTypes),
		}
		if s.faker.Bool() {
			in.WalletAddress = s.faker.RandomString(wallets)
		}
		if _, err := s.engine.RecordEngagement(ctx, in); err != nil {
			return nil, fmt.Errorf("failed to seed engagement: %w", err)
		}
		summary.Engagements++
	}

	logger.Log.Info("Distributing revenue...")
	for i := 0; i < opts.Distributions; i++ {
		content := contents[s.faker.IntRange(0, len(contents)-1)]
		amount := int64(s.faker.IntRange(1_000, 5_000_000))
		if _, err := s.engine.DistributeRevenue(ctx, engine.DistributeInput{
			ContentID:      content.ID,
			AmountLamports: amount,
			RequestID:      "seed-" + s.faker.UUID(),
		}); err != nil {
			return nil, fmt.Errorf("failed to seed distribution: %w", err)
		}
		summary.Distributions++
		summary.Lamports += amount
	}

	if opts.DeleteProbability > 0 {
		logger.Log.Info("Deleting some leaf shares...")
		for _, chain := range chains {
			for _, share := range leaves(chain) {
				if share.ShareDepth == 0 || s.faker.Float64() >= opts.DeleteProbability {
					continue
				}
				if err := s.engine.DeleteShare(ctx, share.ID, share.WalletAddress); err != nil {
					return nil, fmt.Errorf("failed to delete seeded share: %w", err)
				}
				summary.DeletedShares++
			}
		}
	}

	logger.Log.Info("Seeding complete",
		zap.Int("contents", summary.Contents),
		zap.Int("shares", summary.Shares),
		zap.Int("engagements", summary.Engagements),
		zap.Int("distributions", summary.Distributions),
		zap.Int64("lamports", summary.Lamports),
	)
	return summary, nil
}

// Clean removes every attribution row. Use with caution.
func (s *Seeder) Clean(ctx context.Context) error {
	// Delete in reverse order of dependencies
	tables := []string{
		models.RevenuePayout{}.TableName(),
		models.RevenueEvent{}.TableName(),
		models.Engagement{}.TableName(),
		models.Share{}.TableName(),
		models.Content{}.TableName(),
	}
	for _, table := range tables {
		if err := s.db.WithContext(ctx).Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clean %s: %w", table, err)
		}
	}
	return nil
}

// wallet returns a random EVM-style address
func (s *Seeder) wallet() string {
	var b strings.Builder
	b.WriteString("0x")
	for i := 0; i < 20; i++ {
		fmt.Fprintf(&b, "%02x", s.faker.Uint8())
	}
	return b.String()
}

func (s *Seeder) title() string {
	title := strings.TrimSuffix(s.faker.HipsterSentence(), ".")
	if len(title) > 120 {
		title = title[:120]
	}
	return title
}

// pickParent favours recent shares so chains grow deep rather than wide
func (s *Seeder) pickParent(chain []*models.Share) *models.Share {
	if len(chain) > 1 && s.faker.Float64() < 0.6 {
		lo := len(chain) / 2
		return chain[s.faker.IntRange(lo, len(chain)-1)]
	}
	return chain[s.faker.IntRange(0, len(chain)-1)]
}

// leaves returns shares nobody reshared
func leaves(chain []*models.Share) []*models.Share {
	parents := make(map[string]bool, len(chain))
	for _, sh := range chain {
		if sh.ParentShareID != nil {
			parents[*sh.ParentShareID] = true
		}
	}
	var out []*models.Share
	for _, sh := range chain {
		if !parents[sh.ID] {
			out = append(out, sh)
		}
	}
	return out
}
