package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/zfogg/hypechain/backend/internal/cache"
	"github.com/zfogg/hypechain/backend/internal/database"
	apierrors "github.com/zfogg/hypechain/backend/internal/errors"
	"github.com/zfogg/hypechain/backend/internal/live"
	"github.com/zfogg/hypechain/backend/internal/models"
	"github.com/zfogg/hypechain/backend/internal/repository"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []live.Event
}

func (p *recordingPublisher) Publish(event live.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

// EngineTestSuite drives the service against a fresh in-memory database
type EngineTestSuite struct {
	suite.Suite
	ctx       context.Context
	store     *repository.Store
	svc       *Service
	published *recordingPublisher
	board     *cache.LeaderboardCache
}

func (s *EngineTestSuite) SetupTest() {
	db, err := database.OpenInMemory()
	s.Require().NoError(err)

	s.ctx = context.Background()
	s.store = repository.NewStore(db)
	s.published = &recordingPublisher{}
	s.board = cache.NewLeaderboardCache(cache.NewMemoryBackend(time.Minute), time.Minute)
	s.svc = New(s.store, Options{
		AppURL:      "https://hype.example/",
		Leaderboard: s.board,
		Publisher:   s.published,
	})
}

func (s *EngineTestSuite) content(creator string) (*models.Content, *models.Share) {
	res, err := s.svc.CreateContent(s.ctx, CreateContentInput{
		CreatorWallet: creator,
		Title:         "clip by " + creator,
		MediaURL:      "https://cdn.example/clip.mp4",
	})
	s.Require().NoError(err)
	return res.Content, res.Share
}

func (s *EngineTestSuite) shareFrom(contentID, wallet string, parent *models.Share) *models.Share {
	in := CreateShareInput{ContentID: contentID, WalletAddress: wallet}
	if parent != nil {
		in.ParentShareID = &parent.ID
	}
	res, err := s.svc.CreateShare(s.ctx, in)
	s.Require().NoError(err)
	s.Require().True(res.IsNew)
	return res.Share
}

func (s *EngineTestSuite) reload(shareID string) *models.Share {
	sh, err := s.store.Shares.GetByID(s.ctx, shareID)
	s.Require().NoError(err)
	return sh
}

func (s *EngineTestSuite) requireCode(err error, code apierrors.ErrorCode) {
	s.Require().Error(err)
	apiErr, ok := apierrors.As(err)
	s.Require().True(ok, "expected *APIError, got %T: %v", err, err)
	s.Equal(code, apiErr.Code, apiErr.Message)
}

func (s *EngineTestSuite) TestCreateContentSeedsCreatorShare() {
	content, root := s.content("0xCreator")

	s.Equal(int64(1), content.TotalShares)
	s.Equal(content.ID, root.ContentID)
	s.Nil(root.ParentShareID)
	s.Zero(root.ShareDepth)
	s.Equal("https://hype.example/share/"+root.ID, root.ShareURL)

	stored, err := s.store.Contents.GetByID(s.ctx, content.ID)
	s.Require().NoError(err)
	s.Equal(int64(1), stored.TotalShares)
	s.Equal([]string{live.MessageTypeContentCreated}, s.published.types())
}

func (s *EngineTestSuite) TestCreateContentValidation() {
	_, err := s.svc.CreateContent(s.ctx, CreateContentInput{CreatorWallet: "0xa", MediaURL: "https://x.io/a"})
	s.requireCode(err, apierrors.ErrValidation)

	_, err = s.svc.CreateContent(s.ctx, CreateContentInput{CreatorWallet: "0xa", Title: "t", MediaURL: "nope"})
	s.requireCode(err, apierrors.ErrValidation)

	strict := New(s.store, Options{StrictWallets: true})
	_, err = strict.CreateContent(s.ctx, CreateContentInput{CreatorWallet: "0xa", Title: "t", MediaURL: "https://x.io/a"})
	s.requireCode(err, apierrors.ErrValidation)

	all, err := s.store.Contents.ListAll(s.ctx)
	s.Require().NoError(err)
	s.Empty(all)
}

func (s *EngineTestSuite) TestCreateShareDepthAndIdempotence() {
	content, root := s.content("0xcreator")
	child := s.shareFrom(content.ID, "0xAlice", root)
	grandchild := s.shareFrom(content.ID, "0xbob", child)

	s.Equal(1, child.ShareDepth)
	s.Equal(2, grandchild.ShareDepth)
	s.Equal(child.ID, *grandchild.ParentShareID)

	again, err := s.svc.CreateShare(s.ctx, CreateShareInput{ContentID: content.ID, WalletAddress: "0xALICE"})
	s.Require().NoError(err)
	s.False(again.IsNew)
	s.Equal(child.ID, again.Share.ID)

	stored, err := s.store.Contents.GetByID(s.ctx, content.ID)
	s.Require().NoError(err)
	s.Equal(int64(3), stored.TotalShares)
}

func (s *EngineTestSuite) TestCreateShareUnresolvableParentBecomesRoot() {
	content, _ := s.content("0xcreator")
	other, otherRoot := s.content("0xother")
	s.NotEqual(content.ID, other.ID)

	missing := "does-not-exist"
	res, err := s.svc.CreateShare(s.ctx, CreateShareInput{ContentID: content.ID, WalletAddress: "0xa", ParentShareID: &missing})
	s.Require().NoError(err)
	s.Nil(res.Share.ParentShareID)
	s.Zero(res.Share.ShareDepth)

	res, err = s.svc.CreateShare(s.ctx, CreateShareInput{ContentID: content.ID, WalletAddress: "0xb", ParentShareID: &otherRoot.ID})
	s.Require().NoError(err)
	s.Nil(res.Share.ParentShareID)
	s.Zero(res.Share.ShareDepth)
}

func (s *EngineTestSuite) TestCreateShareErrors() {
	_, err := s.svc.CreateShare(s.ctx, CreateShareInput{ContentID: "missing", WalletAddress: "0xa"})
	s.requireCode(err, apierrors.ErrNotFound)

	_, err = s.svc.CreateShare(s.ctx, CreateShareInput{ContentID: "x"})
	s.requireCode(err, apierrors.ErrValidation)

	content, root := s.content("0xcreator")
	s.Require().NoError(s.svc.DeleteShare(s.ctx, root.ID, "0xcreator"))
	s.Require().NoError(s.svc.DeleteContent(s.ctx, content.ID, "0xcreator"))

	_, err = s.svc.CreateShare(s.ctx, CreateShareInput{ContentID: content.ID, WalletAddress: "0xa"})
	s.requireCode(err, apierrors.ErrConflict)
}

func (s *EngineTestSuite) TestReshareAfterSoftDelete() {
	content, root := s.content("0xcreator")
	first := s.shareFrom(content.ID, "0xalice", root)
	s.Require().NoError(s.svc.DeleteShare(s.ctx, first.ID, "0xalice"))

	second, err := s.svc.CreateShare(s.ctx, CreateShareInput{ContentID: content.ID, WalletAddress: "0xalice", ParentShareID: &root.ID})
	s.Require().NoError(err)
	s.True(second.IsNew)
	s.NotEqual(first.ID, second.Share.ID)
}

func (s *EngineTestSuite) TestConcurrentShareRequestsConverge() {
	content, root := s.content("0xcreator")

	const workers = 8
	results := make([]*CreateShareResult, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := s.svc.CreateShare(s.ctx, CreateShareInput{ContentID: content.ID, WalletAddress: "0xRacer", ParentShareID: &root.ID})
			if assert.NoError(s.T(), err) {
				results[i] = res
			}
		}(i)
	}
	wg.Wait()

	newCount := 0
	for _, res := range results {
		s.Require().NotNil(res)
		s.Equal(results[0].Share.ID, res.Share.ID)
		if res.IsNew {
			newCount++
		}
	}
	s.Equal(1, newCount)
}

func (s *EngineTestSuite) TestRecordEngagement() {
	content, root := s.content("0xcreator")

	click, err := s.svc.RecordEngagement(s.ctx, RecordEngagementInput{ShareID: root.ID, EngagementType: "click", WalletAddress: "0xviewer"})
	s.Require().NoError(err)
	s.Equal(content.ID, click.ContentID)
	s.Require().NotNil(click.WalletAddress)

	_, err = s.svc.RecordEngagement(s.ctx, RecordEngagementInput{ShareID: root.ID, ContentID: content.ID, EngagementType: "view"})
	s.Require().NoError(err)

	s.Equal(int64(1), s.reload(root.ID).ClickCount)
	stored, err := s.store.Contents.GetByID(s.ctx, content.ID)
	s.Require().NoError(err)
	s.Equal(int64(2), stored.TotalEngagements)

	_, err = s.svc.RecordEngagement(s.ctx, RecordEngagementInput{ShareID: root.ID, ContentID: "other", EngagementType: "view"})
	s.requireCode(err, apierrors.ErrValidation)

	_, err = s.svc.RecordEngagement(s.ctx, RecordEngagementInput{ShareID: root.ID, EngagementType: "like"})
	s.requireCode(err, apierrors.ErrValidation)

	_, err = s.svc.RecordEngagement(s.ctx, RecordEngagementInput{ShareID: "missing", EngagementType: "view"})
	s.requireCode(err, apierrors.ErrNotFound)

	count, err := s.store.Engagements.CountByContent(s.ctx, content.ID)
	s.Require().NoError(err)
	s.Equal(int64(2), count)
}

func (s *EngineTestSuite) TestBuildShareTree() {
	content, root := s.content("0xcreator")
	a := s.shareFrom(content.ID, "0xa", root)
	s.shareFrom(content.ID, "0xb", root)
	s.shareFrom(content.ID, "0xc", a)
	s.Require().NoError(s.svc.DeleteShare(s.ctx, a.ID, "0xa"))

	res, err := s.svc.BuildShareTree(s.ctx, content.ID)
	s.Require().NoError(err)
	s.Equal(content.ID, res.Content.ID)
	s.Equal(4, res.TotalShares)
	s.Equal(3, res.ActiveShares)
	s.Equal(1, res.DeletedShares)
	s.Equal(3, res.MaxDepth)
	s.Require().Len(res.Roots, 1)
	s.Equal(root.ID, res.CreatorShare.Share.ID)
	s.Len(res.Roots[0].Children, 2)
	s.Empty(res.DepthMismatches())

	_, err = s.svc.BuildShareTree(s.ctx, "missing")
	s.requireCode(err, apierrors.ErrNotFound)
}

func (s *EngineTestSuite) TestDistributeTwoLevelChain() {
	content, root := s.content("0xcreator")
	child := s.shareFrom(content.ID, "0xchild", root)

	res, err := s.svc.DistributeRevenue(s.ctx, DistributeInput{ContentID: content.ID, AmountLamports: 300})
	s.Require().NoError(err)
	s.Equal(1, res.MaxDepth)
	s.Zero(res.RemainderGivenToCreator)
	s.Require().Len(res.Distributions, 2)
	s.Equal(int64(200), res.Distributions[0].Amount)
	s.Equal(int64(100), res.Distributions[1].Amount)

	s.Equal(int64(200), s.reload(root.ID).EarningsLamports)
	s.Equal(int64(100), s.reload(child.ID).EarningsLamports)
	s.Equal(int64(300), res.TotalRevenueLamports)
}

func (s *EngineTestSuite) TestDistributeRemainderToCreator() {
	content, root := s.content("0xcreator")
	b := s.shareFrom(content.ID, "0xb", root)
	c := s.shareFrom(content.ID, "0xc", root)

	_, err := s.svc.DistributeRevenue(s.ctx, DistributeInput{ContentID: content.ID, AmountLamports: 100})
	s.Require().NoError(err)
	res, err := s.svc.DistributeRevenue(s.ctx, DistributeInput{ContentID: content.ID, AmountLamports: 101})
	s.Require().NoError(err)
	s.Equal(int64(1), res.RemainderGivenToCreator)
	s.Equal(int64(51), res.Distributions[0].Amount)

	s.Equal(int64(101), s.reload(root.ID).EarningsLamports)
	s.Equal(int64(50), s.reload(b.ID).EarningsLamports)
	s.Equal(int64(50), s.reload(c.ID).EarningsLamports)

	stored, err := s.store.Contents.GetByID(s.ctx, content.ID)
	s.Require().NoError(err)
	s.Equal(int64(201), stored.TotalRevenueLamports)

	events, err := s.svc.RevenueHistory(s.ctx, content.ID, 10)
	s.Require().NoError(err)
	s.Len(events, 2)
}

func (s *EngineTestSuite) TestDistributePaysDeletedShares() {
	content, root := s.content("0xcreator")
	child := s.shareFrom(content.ID, "0xchild", root)
	s.Require().NoError(s.svc.DeleteShare(s.ctx, child.ID, "0xchild"))

	_, err := s.svc.DistributeRevenue(s.ctx, DistributeInput{ContentID: content.ID, AmountLamports: 300})
	s.Require().NoError(err)
	s.Equal(int64(100), s.reload(child.ID).EarningsLamports)
}

func (s *EngineTestSuite) TestDistributeRejections() {
	content, _ := s.content("0xcreator")

	for _, amount := range []int64{0, -5, 1 << 53} {
		_, err := s.svc.DistributeRevenue(s.ctx, DistributeInput{ContentID: content.ID, AmountLamports: amount})
		s.requireCode(err, apierrors.ErrValidation)
	}

	_, err := s.svc.DistributeRevenue(s.ctx, DistributeInput{ContentID: "missing", AmountLamports: 10})
	s.requireCode(err, apierrors.ErrNotFound)

	bare := &models.Content{CreatorWallet: "0xbare", Title: "no chain"}
	s.Require().NoError(s.store.Contents.Create(s.ctx, bare))
	_, err = s.svc.DistributeRevenue(s.ctx, DistributeInput{ContentID: bare.ID, AmountLamports: 10})
	s.requireCode(err, apierrors.ErrNotFound)

	stored, err := s.store.Contents.GetByID(s.ctx, content.ID)
	s.Require().NoError(err)
	s.Zero(stored.TotalRevenueLamports)
}

func (s *EngineTestSuite) TestDistributeIdempotentByRequestID() {
	content, root := s.content("0xcreator")

	first, err := s.svc.DistributeRevenue(s.ctx, DistributeInput{ContentID: content.ID, AmountLamports: 500, RequestID: "order-1"})
	s.Require().NoError(err)
	s.False(first.Replayed)

	again, err := s.svc.DistributeRevenue(s.ctx, DistributeInput{ContentID: content.ID, AmountLamports: 500, RequestID: "order-1"})
	s.Require().NoError(err)
	s.True(again.Replayed)
	s.Equal(first.EventID, again.EventID)
	s.Equal(first.Distributions[0].Amount, again.Distributions[0].Amount)
	s.Equal(int64(500), s.reload(root.ID).EarningsLamports)

	_, err = s.svc.DistributeRevenue(s.ctx, DistributeInput{ContentID: content.ID, AmountLamports: 499, RequestID: "order-1"})
	s.requireCode(err, apierrors.ErrConflict)
}

func (s *EngineTestSuite) TestConcurrentDistributionsConserveTotals() {
	content, root := s.content("0xcreator")
	a := s.shareFrom(content.ID, "0xa", root)
	b := s.shareFrom(content.ID, "0xb", a)

	const workers = 10
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.svc.DistributeRevenue(s.ctx, DistributeInput{ContentID: content.ID, AmountLamports: 101})
			assert.NoError(s.T(), err)
		}()
	}
	wg.Wait()

	total := s.reload(root.ID).EarningsLamports + s.reload(a.ID).EarningsLamports + s.reload(b.ID).EarningsLamports
	s.Equal(int64(workers*101), total)

	stored, err := s.store.Contents.GetByID(s.ctx, content.ID)
	s.Require().NoError(err)
	s.Equal(int64(workers*101), stored.TotalRevenueLamports)
}

func (s *EngineTestSuite) TestDeleteShareRules() {
	content, root := s.content("0xcreator")
	child := s.shareFrom(content.ID, "0xchild", root)
	grandchild := s.shareFrom(content.ID, "0xgrand", child)
	_, err := s.svc.RecordEngagement(s.ctx, RecordEngagementInput{ShareID: child.ID, EngagementType: "click"})
	s.Require().NoError(err)
	_, err = s.svc.DistributeRevenue(s.ctx, DistributeInput{ContentID: content.ID, AmountLamports: 700})
	s.Require().NoError(err)
	before := s.reload(child.ID)

	s.requireCode(s.svc.DeleteShare(s.ctx, child.ID, "0xsomeoneelse"), apierrors.ErrForbidden)
	s.requireCode(s.svc.DeleteShare(s.ctx, "missing", "0xchild"), apierrors.ErrNotFound)

	s.Require().NoError(s.svc.DeleteShare(s.ctx, child.ID, "0xCHILD"))
	s.requireCode(s.svc.DeleteShare(s.ctx, child.ID, "0xchild"), apierrors.ErrConflict)

	after := s.reload(child.ID)
	s.True(after.IsDeleted)
	s.NotNil(after.DeletedAt)
	s.Equal(before.EarningsLamports, after.EarningsLamports)
	s.Equal(before.ClickCount, after.ClickCount)
	s.Equal(child.ID, *s.reload(grandchild.ID).ParentShareID)
}

func (s *EngineTestSuite) TestDeleteContentGuard() {
	content, root := s.content("0xcreator")
	child := s.shareFrom(content.ID, "0xchild", root)

	s.requireCode(s.svc.DeleteContent(s.ctx, content.ID, "0xchild"), apierrors.ErrForbidden)
	s.requireCode(s.svc.DeleteContent(s.ctx, content.ID, "0xcreator"), apierrors.ErrConflict)

	s.Require().NoError(s.svc.DeleteShare(s.ctx, root.ID, "0xcreator"))
	s.requireCode(s.svc.DeleteContent(s.ctx, content.ID, "0xcreator"), apierrors.ErrConflict)

	s.Require().NoError(s.svc.DeleteShare(s.ctx, child.ID, "0xchild"))
	s.Require().NoError(s.svc.DeleteContent(s.ctx, content.ID, "0xCreator"))
	s.requireCode(s.svc.DeleteContent(s.ctx, content.ID, "0xcreator"), apierrors.ErrConflict)
	s.requireCode(s.svc.DeleteContent(s.ctx, "missing", "0xcreator"), apierrors.ErrNotFound)

	listed, err := s.svc.ListContent(s.ctx, 10, 0)
	s.Require().NoError(err)
	s.Empty(listed)

	detail, err := s.svc.GetContent(s.ctx, content.ID)
	s.Require().NoError(err)
	s.True(detail.Content.IsDeleted)
	s.Equal(int64(2), detail.Stats.Shares)
	s.Zero(detail.Stats.ActiveShares)
}

func (s *EngineTestSuite) TestLeaderboardCacheInvalidation() {
	content, root := s.content("0xcreator")
	s.shareFrom(content.ID, "0xb", root)

	board, err := s.svc.GetLeaderboard(s.ctx)
	s.Require().NoError(err)
	s.Empty(board.TopEarners)
	s.Require().Len(board.ViralContent, 1)

	_, ok := s.board.Get(s.ctx)
	s.True(ok)

	_, err = s.svc.DistributeRevenue(s.ctx, DistributeInput{ContentID: content.ID, AmountLamports: 30})
	s.Require().NoError(err)
	_, ok = s.board.Get(s.ctx)
	s.False(ok)

	board, err = s.svc.GetLeaderboard(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(board.TopEarners, 2)
	s.Equal("0xcreator", board.TopEarners[0].Wallet)
	s.Equal(int64(20), board.TopEarners[0].Earnings)
	s.Require().Len(board.TopRevenue, 1)
}

func (s *EngineTestSuite) TestWalletAnalyticsAndProfile() {
	content, root := s.content("0xcreator")
	second, secondRoot := s.content("0xother")
	mine := s.shareFrom(content.ID, "0xfan", root)
	s.shareFrom(second.ID, "0xFan", secondRoot)

	_, err := s.svc.DistributeRevenue(s.ctx, DistributeInput{ContentID: content.ID, AmountLamports: 90})
	s.Require().NoError(err)
	s.Require().NoError(s.svc.DeleteShare(s.ctx, mine.ID, "0xfan"))

	stats, err := s.svc.GetWalletAnalytics(s.ctx, "0xFAN")
	s.Require().NoError(err)
	s.Equal(int64(30), stats.TotalEarnings)
	s.Zero(stats.ActiveEarnings)
	s.Require().Len(stats.EarningsByContent, 2)
	s.Equal(content.Title, stats.EarningsByContent[0].Title)
	s.Equal(2, stats.TimeBasedMetrics.AllTime.Shares)
	s.Equal(2, stats.TimeBasedMetrics.Last7Days.Shares)
	s.Require().Len(stats.TopShares, 1)
	s.Equal(second.ID, stats.TopShares[0].ContentID)

	profile, err := s.svc.GetProfile(s.ctx, "0xcreator")
	s.Require().NoError(err)
	s.Equal(1, profile.Stats.ContentCreated)
	s.Equal(int64(90), profile.Stats.TotalContentRevenue)
	s.Equal(int64(60), profile.Stats.TotalEarnings)
	s.Len(profile.Shares, 1)
}

func (s *EngineTestSuite) TestRecentActivity() {
	content, root := s.content("0xcreator")
	s.shareFrom(content.ID, "0xa", root)
	_, err := s.svc.RecordEngagement(s.ctx, RecordEngagementInput{ShareID: root.ID, EngagementType: "view"})
	s.Require().NoError(err)

	feed, err := s.svc.RecentActivity(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(feed, 3)
	s.Equal("engagement", feed[0].Type)
	s.Equal("0xcreator", feed[0].Wallet)
	s.Equal(content.Title, feed[0].ContentTitle)
	for i := 1; i < len(feed); i++ {
		s.False(feed[i].Timestamp.After(feed[i-1].Timestamp))
	}

	limited, err := s.svc.RecentActivity(s.ctx, 1)
	s.Require().NoError(err)
	s.Len(limited, 1)
}

func (s *EngineTestSuite) TestEventsPublishedAfterCommit() {
	content, root := s.content("0xcreator")
	child := s.shareFrom(content.ID, "0xa", root)
	_, err := s.svc.RecordEngagement(s.ctx, RecordEngagementInput{ShareID: child.ID, EngagementType: "share"})
	s.Require().NoError(err)
	_, err = s.svc.DistributeRevenue(s.ctx, DistributeInput{ContentID: content.ID, AmountLamports: 3})
	s.Require().NoError(err)
	s.Require().NoError(s.svc.DeleteShare(s.ctx, child.ID, "0xa"))

	// rejected writes publish nothing
	s.Error(s.svc.DeleteShare(s.ctx, child.ID, "0xa"))

	s.Equal([]string{
		live.MessageTypeContentCreated,
		live.MessageTypeShareCreated,
		live.MessageTypeEngagementRecorded,
		live.MessageTypeRevenueDistributed,
		live.MessageTypeShareDeleted,
	}, s.published.types())
}

func TestEngineTestSuite(t *testing.T) {
	suite.Run(t, new(EngineTestSuite))
}

func TestKeyedMutexReleasesKeys(t *testing.T) {
	k := newKeyedMutex()
	unlock := k.Lock("a")
	done := make(chan struct{})
	go func() {
		defer close(done)
		k.Lock("a")()
	}()

	select {
	case <-done:
		t.Fatal("second holder acquired a held key")
	case <-time.After(20 * time.Millisecond):
	}
	unlock()
	<-done

	k.mu.Lock()
	defer k.mu.Unlock()
	require.Empty(t, k.locks)
}
