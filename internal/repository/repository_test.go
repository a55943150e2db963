package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/zfogg/hypechain/backend/internal/database"
	"github.com/zfogg/hypechain/backend/internal/models"
)

// RepositoryTestSuite runs every repository against a fresh in-memory database
type RepositoryTestSuite struct {
	suite.Suite
	store   *Store
	ctx     context.Context
	content *models.Content
	base    time.Time
}

func (s *RepositoryTestSuite) SetupTest() {
	db, err := database.OpenInMemory()
	s.Require().NoError(err)
	s.store = NewStore(db)
	s.ctx = context.Background()
	s.base = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	s.content = &models.Content{CreatorWallet: "0xCreator", Title: "launch clip", CreatedAt: s.base}
	s.Require().NoError(s.store.Contents.Create(s.ctx, s.content))
}

func (s *RepositoryTestSuite) share(wallet string, depth int, parent *string, offset time.Duration) *models.Share {
	sh := &models.Share{
		ContentID:     s.content.ID,
		WalletAddress: wallet,
		ShareDepth:    depth,
		ParentShareID: parent,
		CreatedAt:     s.base.Add(offset),
	}
	s.Require().NoError(s.store.Shares.Create(s.ctx, sh))
	return sh
}

func (s *RepositoryTestSuite) TestContentLookup() {
	got, err := s.store.Contents.GetByID(s.ctx, s.content.ID)
	s.Require().NoError(err)
	s.Equal("launch clip", got.Title)

	_, err = s.store.Contents.GetByID(s.ctx, "missing")
	s.ErrorIs(err, ErrContentNotFound)

	locked, err := s.store.Contents.GetForUpdate(s.ctx, s.content.ID)
	s.Require().NoError(err)
	s.Equal(s.content.ID, locked.ID)
}

func (s *RepositoryTestSuite) TestListByCreatorIsCaseInsensitive() {
	contents, err := s.store.Contents.ListByCreator(s.ctx, "0xcreator")
	s.Require().NoError(err)
	s.Len(contents, 1)
}

func (s *RepositoryTestSuite) TestListExcludesDeletedContent() {
	other := &models.Content{CreatorWallet: "0xother", Title: "second", CreatedAt: s.base.Add(time.Hour)}
	s.Require().NoError(s.store.Contents.Create(s.ctx, other))
	s.Require().NoError(s.store.Contents.SoftDelete(s.ctx, s.content.ID, "0xcreator", s.base))

	listed, err := s.store.Contents.List(s.ctx, 10, 0)
	s.Require().NoError(err)
	s.Require().Len(listed, 1)
	s.Equal(other.ID, listed[0].ID)

	all, err := s.store.Contents.ListAll(s.ctx)
	s.Require().NoError(err)
	s.Len(all, 2)
}

func (s *RepositoryTestSuite) TestContentCounters() {
	s.Require().NoError(s.store.Contents.IncrementShares(s.ctx, s.content.ID))
	s.Require().NoError(s.store.Contents.IncrementShares(s.ctx, s.content.ID))
	s.Require().NoError(s.store.Contents.IncrementEngagements(s.ctx, s.content.ID))
	s.ErrorIs(s.store.Contents.IncrementShares(s.ctx, "missing"), ErrContentNotFound)

	got, err := s.store.Contents.GetByID(s.ctx, s.content.ID)
	s.Require().NoError(err)
	s.Equal(int64(2), got.TotalShares)
	s.Equal(int64(1), got.TotalEngagements)
}

func (s *RepositoryTestSuite) TestApplyRevenueCompareAndSwap() {
	s.Require().NoError(s.store.Contents.ApplyRevenue(s.ctx, s.content.ID, 0, 500))
	s.ErrorIs(s.store.Contents.ApplyRevenue(s.ctx, s.content.ID, 0, 500), ErrConcurrentUpdate)
	s.Require().NoError(s.store.Contents.ApplyRevenue(s.ctx, s.content.ID, 1, 25))

	got, err := s.store.Contents.GetByID(s.ctx, s.content.ID)
	s.Require().NoError(err)
	s.Equal(int64(525), got.TotalRevenueLamports)
	s.Equal(int64(2), got.RevenueVersion)
}

func (s *RepositoryTestSuite) TestContentSoftDeleteOnce() {
	s.Require().NoError(s.store.Contents.SoftDelete(s.ctx, s.content.ID, "0xcreator", s.base))
	s.ErrorIs(s.store.Contents.SoftDelete(s.ctx, s.content.ID, "0xcreator", s.base), ErrAlreadyDeleted)

	got, err := s.store.Contents.GetByID(s.ctx, s.content.ID)
	s.Require().NoError(err)
	s.True(got.IsDeleted)
	s.Equal("0xcreator", got.DeletedBy)
	s.NotNil(got.DeletedAt)
}

func (s *RepositoryTestSuite) TestShareUniquenessAndLookup() {
	root := s.share("0xAAA", 0, nil, 0)

	err := s.store.Shares.Create(s.ctx, &models.Share{ContentID: s.content.ID, WalletAddress: "0xaaa"})
	s.ErrorIs(err, ErrDuplicateShare)

	found, err := s.store.Shares.FindActive(s.ctx, s.content.ID, "0XAAA")
	s.Require().NoError(err)
	s.Equal(root.ID, found.ID)

	_, err = s.store.Shares.FindActive(s.ctx, s.content.ID, "0xbbb")
	s.ErrorIs(err, ErrShareNotFound)

	_, err = s.store.Shares.GetByID(s.ctx, "missing")
	s.ErrorIs(err, ErrShareNotFound)
}

func (s *RepositoryTestSuite) TestDistributionOrder() {
	root := s.share("0xroot", 0, nil, 0)
	late := s.share("0xlate", 1, &root.ID, 2*time.Minute)
	early := s.share("0xearly", 1, &root.ID, time.Minute)
	deep := s.share("0xdeep", 2, &early.ID, 30*time.Second)

	shares, err := s.store.Shares.ListForDistribution(s.ctx, s.content.ID)
	s.Require().NoError(err)
	s.Equal([]string{root.ID, early.ID, late.ID, deep.ID}, ids(shares))

	byCreation, err := s.store.Shares.ListByContent(s.ctx, s.content.ID)
	s.Require().NoError(err)
	s.Equal([]string{root.ID, deep.ID, early.ID, late.ID}, ids(byCreation))
}

func (s *RepositoryTestSuite) TestSetEarningsCompareAndSwap() {
	sh := s.share("0xaaa", 0, nil, 0)

	s.Require().NoError(s.store.Shares.SetEarnings(s.ctx, sh.ID, 0, 100))
	s.ErrorIs(s.store.Shares.SetEarnings(s.ctx, sh.ID, 0, 200), ErrConcurrentUpdate)

	got, err := s.store.Shares.GetByID(s.ctx, sh.ID)
	s.Require().NoError(err)
	s.Equal(int64(100), got.EarningsLamports)
}

func (s *RepositoryTestSuite) TestShareSoftDeleteKeepsCounters() {
	sh := s.share("0xaaa", 0, nil, 0)
	s.Require().NoError(s.store.Shares.IncrementClicks(s.ctx, sh.ID))
	s.Require().NoError(s.store.Shares.SetEarnings(s.ctx, sh.ID, 0, 70))

	s.Require().NoError(s.store.Shares.SoftDelete(s.ctx, sh.ID, "0xaaa", s.base))
	s.ErrorIs(s.store.Shares.SoftDelete(s.ctx, sh.ID, "0xaaa", s.base), ErrAlreadyDeleted)

	got, err := s.store.Shares.GetByID(s.ctx, sh.ID)
	s.Require().NoError(err)
	s.True(got.IsDeleted)
	s.Equal(int64(1), got.ClickCount)
	s.Equal(int64(70), got.EarningsLamports)

	count, err := s.store.Shares.CountActive(s.ctx, s.content.ID)
	s.Require().NoError(err)
	s.Zero(count)
}

func (s *RepositoryTestSuite) TestEarningAndTopQueries() {
	a := s.share("0xaaa", 0, nil, 0)
	b := s.share("0xbbb", 1, &a.ID, time.Minute)
	c := s.share("0xccc", 1, &a.ID, 2*time.Minute)
	s.Require().NoError(s.store.Shares.SetEarnings(s.ctx, a.ID, 0, 10))
	s.Require().NoError(s.store.Shares.SetEarnings(s.ctx, b.ID, 0, 30))
	s.Require().NoError(s.store.Shares.SetEarnings(s.ctx, c.ID, 0, 20))
	s.Require().NoError(s.store.Shares.SoftDelete(s.ctx, c.ID, "0xccc", s.base))

	earning, err := s.store.Shares.ListEarning(s.ctx)
	s.Require().NoError(err)
	s.ElementsMatch([]string{a.ID, b.ID}, ids(earning))

	top, err := s.store.Shares.TopByContent(s.ctx, s.content.ID, 10)
	s.Require().NoError(err)
	s.Equal([]string{b.ID, a.ID}, ids(top))

	mine, err := s.store.Shares.ListByWallet(s.ctx, "0XCCC")
	s.Require().NoError(err)
	s.Equal([]string{c.ID}, ids(mine))
}

func (s *RepositoryTestSuite) TestRecentSkipsDeletedContent() {
	s.share("0xaaa", 0, nil, 0)
	other := &models.Content{CreatorWallet: "0xother", Title: "other"}
	s.Require().NoError(s.store.Contents.Create(s.ctx, other))
	s.Require().NoError(s.store.Shares.Create(s.ctx, &models.Share{ContentID: other.ID, WalletAddress: "0xother"}))
	s.Require().NoError(s.store.Contents.SoftDelete(s.ctx, s.content.ID, "0xcreator", s.base))

	recent, err := s.store.Shares.Recent(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(recent, 1)
	s.Equal(other.ID, recent[0].ContentID)
}

func (s *RepositoryTestSuite) TestEngagements() {
	sh := s.share("0xaaa", 0, nil, 0)
	for _, typ := range []string{models.EngagementView, models.EngagementClick} {
		s.Require().NoError(s.store.Engagements.Create(s.ctx, &models.Engagement{
			ShareID: sh.ID, ContentID: s.content.ID, EngagementType: typ,
		}))
	}

	count, err := s.store.Engagements.CountByContent(s.ctx, s.content.ID)
	s.Require().NoError(err)
	s.Equal(int64(2), count)

	recent, err := s.store.Engagements.Recent(s.ctx, 1)
	s.Require().NoError(err)
	s.Len(recent, 1)
}

func (s *RepositoryTestSuite) TestRevenueEventLedger() {
	sh := s.share("0xaaa", 0, nil, 0)
	requestID := "req-1"
	event := &models.RevenueEvent{
		ContentID:      s.content.ID,
		RequestID:      &requestID,
		AmountLamports: 100,
		ShareCount:     1,
		Payouts: []models.RevenuePayout{
			{ShareID: sh.ID, WalletAddress: sh.WalletAddress, AmountLamports: 100, NewTotal: 100},
		},
	}
	s.Require().NoError(s.store.Revenue.CreateEvent(s.ctx, event))

	got, err := s.store.Revenue.GetByRequestID(s.ctx, requestID)
	s.Require().NoError(err)
	s.Equal(int64(100), got.AmountLamports)
	s.Require().Len(got.Payouts, 1)
	s.Equal(sh.ID, got.Payouts[0].ShareID)

	dup := &models.RevenueEvent{ContentID: s.content.ID, RequestID: &requestID, AmountLamports: 5}
	s.ErrorIs(s.store.Revenue.CreateEvent(s.ctx, dup), ErrDuplicateRequest)

	_, err = s.store.Revenue.GetByRequestID(s.ctx, "nope")
	s.ErrorIs(err, ErrEventNotFound)

	// Events without a request id never collide
	s.Require().NoError(s.store.Revenue.CreateEvent(s.ctx, &models.RevenueEvent{ContentID: s.content.ID, AmountLamports: 1}))
	s.Require().NoError(s.store.Revenue.CreateEvent(s.ctx, &models.RevenueEvent{ContentID: s.content.ID, AmountLamports: 2}))

	events, err := s.store.Revenue.ListByContent(s.ctx, s.content.ID, 10)
	s.Require().NoError(err)
	s.Len(events, 3)
}

func (s *RepositoryTestSuite) TestListByIDs() {
	a := s.share("0xaaa", 0, nil, 0)
	s.share("0xbbb", 1, &a.ID, time.Minute)

	shares, err := s.store.Shares.ListByIDs(s.ctx, []string{a.ID, "missing"})
	s.Require().NoError(err)
	s.Equal([]string{a.ID}, ids(shares))

	none, err := s.store.Shares.ListByIDs(s.ctx, nil)
	s.Require().NoError(err)
	s.Empty(none)

	contents, err := s.store.Contents.ListByIDs(s.ctx, []string{s.content.ID})
	s.Require().NoError(err)
	s.Require().Len(contents, 1)
	s.Equal("launch clip", contents[0].Title)
}

func (s *RepositoryTestSuite) TestWithinTxRollsBack() {
	boom := errors.New("boom")
	err := s.store.WithinTx(s.ctx, func(tx *Store) error {
		s.Require().NoError(tx.Contents.IncrementShares(s.ctx, s.content.ID))
		return boom
	})
	s.ErrorIs(err, boom)

	got, err := s.store.Contents.GetByID(s.ctx, s.content.ID)
	s.Require().NoError(err)
	s.Zero(got.TotalShares)
}

func TestRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}

func ids(shares []*models.Share) []string {
	out := make([]string, len(shares))
	for i, sh := range shares {
		out[i] = sh.ID
	}
	return out
}
