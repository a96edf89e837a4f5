package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/reliefnet/reliefnet/internal/services/relief/domain"
	"github.com/reliefnet/reliefnet/internal/services/relief/storage"
)

var testNow = time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "relief.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store
}

func seedCampaign(t *testing.T, store *Store, id string, target int64) domain.Campaign {
	t.Helper()
	campaign := domain.Campaign{
		ID:               id,
		Name:             "Coastal Flood",
		Currency:         "USDC",
		ReceivingAddress: "0xfund",
		Target:           decimal.NewFromInt(target),
		Status:           domain.CampaignActive,
		CreatedBy:        "admin-1",
		Version:          1,
		CreatedAt:        testNow,
		UpdatedAt:        testNow,
	}
	if err := store.CreateCampaign(context.Background(), campaign); err != nil {
		t.Fatalf("create campaign: %v", err)
	}
	return campaign
}

func seedDonation(t *testing.T, store *Store, id, campaignID, ref string, amount int64) domain.Donation {
	t.Helper()
	donation := domain.Donation{
		ID:           id,
		CampaignID:   campaignID,
		DonorAddress: "0xdonor",
		Amount:       decimal.NewFromInt(amount),
		Currency:     "USDC",
		ChainTxRef:   ref,
		State:        domain.DonationPending,
		Manual:       ref == "",
		NextCheckAt:  testNow,
		Version:      1,
		CreatedAt:    testNow,
		UpdatedAt:    testNow,
	}
	if err := store.CreateDonation(context.Background(), donation); err != nil {
		t.Fatalf("create donation: %v", err)
	}
	return donation
}

func seedParty(t *testing.T, store *Store, id string) domain.Party {
	t.Helper()
	party := domain.Party{
		ID:        id,
		Role:      domain.PartyBeneficiary,
		Name:      "Field Clinic",
		Subject:   "user-7",
		Status:    domain.PartyApproved,
		Version:   1,
		CreatedAt: testNow,
		UpdatedAt: testNow,
	}
	if err := store.CreateParty(context.Background(), party); err != nil {
		t.Fatalf("create party: %v", err)
	}
	return party
}

func newPackage(id, campaignID, beneficiaryID string, amount int64) domain.ReliefPackage {
	return domain.ReliefPackage{
		ID:            id,
		CampaignID:    campaignID,
		BeneficiaryID: beneficiaryID,
		Category:      "shelter",
		Amount:        decimal.NewFromInt(amount),
		Status:        domain.PackageIssued,
		IssuedBy:      "admin-1",
		ExpiresAt:     testNow.Add(time.Hour),
		Version:       1,
		CreatedAt:     testNow,
		UpdatedAt:     testNow,
	}
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(""); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestCampaignRoundTripAndVersionGuard(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	seeded := seedCampaign(t, store, "camp-1", 1000)

	got, err := store.GetCampaign(ctx, "camp-1")
	if err != nil {
		t.Fatalf("get campaign: %v", err)
	}
	if got.Name != seeded.Name || !got.Target.Equal(seeded.Target) || got.Version != 1 {
		t.Fatalf("campaign = %+v", got)
	}
	if !got.CreatedAt.Equal(testNow) || got.ClosedAt != nil {
		t.Fatalf("timestamps = %v/%v", got.CreatedAt, got.ClosedAt)
	}

	closed, err := domain.CloseCampaign(got, testNow.Add(time.Minute))
	if err != nil {
		t.Fatalf("close campaign: %v", err)
	}
	if err := store.UpdateCampaign(ctx, closed, got.Version); err != nil {
		t.Fatalf("update campaign: %v", err)
	}
	if err := store.UpdateCampaign(ctx, closed, got.Version); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("stale update error = %v, want %v", err, storage.ErrConflict)
	}

	reloaded, err := store.GetCampaign(ctx, "camp-1")
	if err != nil {
		t.Fatalf("get campaign: %v", err)
	}
	if reloaded.Status != domain.CampaignClosed || reloaded.Version != 2 || reloaded.ClosedAt == nil {
		t.Fatalf("reloaded = %+v", reloaded)
	}
}

func TestCampaignMissingAndDuplicate(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	if _, err := store.GetCampaign(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("get missing error = %v", err)
	}
	if err := store.UpdateCampaign(ctx, domain.Campaign{ID: "missing"}, 1); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("update missing error = %v", err)
	}
	campaign := seedCampaign(t, store, "camp-1", 10)
	if err := store.CreateCampaign(ctx, campaign); !errors.Is(err, storage.ErrAlreadyExists) {
		t.Fatalf("duplicate create error = %v", err)
	}
}

func TestCreateDonationRejectsDuplicateChainRef(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	seedCampaign(t, store, "camp-1", 1000)
	seedDonation(t, store, "don-1", "camp-1", "0xtx1", 100)

	dup := domain.Donation{
		ID: "don-2", CampaignID: "camp-1", DonorAddress: "0xdonor", Amount: decimal.NewFromInt(100),
		Currency: "USDC", ChainTxRef: "0xtx1", State: domain.DonationPending, NextCheckAt: testNow,
		Version: 1, CreatedAt: testNow, UpdatedAt: testNow,
	}
	if err := store.CreateDonation(ctx, dup); !errors.Is(err, storage.ErrAlreadyExists) {
		t.Fatalf("duplicate chain ref error = %v, want %v", err, storage.ErrAlreadyExists)
	}

	// Manual donations carry no reference and never collide.
	seedDonation(t, store, "don-3", "camp-1", "", 5)
	seedDonation(t, store, "don-4", "camp-1", "", 5)

	got, err := store.GetDonationByChainTxRef(ctx, "0xtx1")
	if err != nil {
		t.Fatalf("get by chain ref: %v", err)
	}
	if got.ID != "don-1" {
		t.Fatalf("donation id = %q, want don-1", got.ID)
	}
	if _, err := store.GetDonationByChainTxRef(ctx, ""); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("empty ref error = %v", err)
	}
}

func TestCreateDonationUnknownCampaign(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	donation := domain.Donation{
		ID: "don-1", CampaignID: "nope", DonorAddress: "0xdonor", Amount: decimal.NewFromInt(1),
		Currency: "USDC", State: domain.DonationPending, NextCheckAt: testNow, Version: 1,
		CreatedAt: testNow, UpdatedAt: testNow,
	}
	if err := store.CreateDonation(context.Background(), donation); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("unknown campaign error = %v, want %v", err, storage.ErrNotFound)
	}
}

func TestUpdateDonationGuards(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	seedCampaign(t, store, "camp-1", 1000)
	donation := seedDonation(t, store, "don-1", "camp-1", "0xtx1", 100)

	retry := domain.ScheduleCheck(donation, testNow.Add(time.Minute), testNow)
	retry.OracleAttempts = 1
	if err := store.UpdateDonation(ctx, retry, 1); err != nil {
		t.Fatalf("update donation: %v", err)
	}
	if err := store.UpdateDonation(ctx, retry, 1); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("stale update error = %v, want %v", err, storage.ErrConflict)
	}

	failed, err := domain.FailDonation(retry, domain.ReasonReverted, "", testNow)
	if err != nil {
		t.Fatalf("fail donation: %v", err)
	}
	if err := store.UpdateDonation(ctx, failed, 2); err != nil {
		t.Fatalf("fail update: %v", err)
	}

	got, err := store.GetDonation(ctx, "don-1")
	if err != nil {
		t.Fatalf("get donation: %v", err)
	}
	if got.State != domain.DonationFailed || got.FailureReason != domain.ReasonReverted || got.Version != 3 {
		t.Fatalf("donation = %+v", got)
	}
	if got.OracleAttempts != 1 || got.ResolvedAt == nil {
		t.Fatalf("attempts/resolved = %d/%v", got.OracleAttempts, got.ResolvedAt)
	}

	got.State = domain.DonationConfirmed
	if err := store.UpdateDonation(ctx, got, got.Version); !errors.Is(err, storage.ErrImmutable) {
		t.Fatalf("terminal update error = %v, want %v", err, storage.ErrImmutable)
	}
}

func TestUpdateDonationFencedBumpsCampaign(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	seedCampaign(t, store, "camp-1", 1000)
	donation := seedDonation(t, store, "don-1", "camp-1", "0xtx1", 100)

	confirmed, err := domain.ConfirmDonation(donation, testNow)
	if err != nil {
		t.Fatalf("confirm donation: %v", err)
	}
	stale := storage.CampaignFence{CampaignID: "camp-1", Version: 7}
	if err := store.UpdateDonationFenced(ctx, confirmed, 1, stale); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("stale fence error = %v, want %v", err, storage.ErrConflict)
	}
	unchanged, err := store.GetDonation(ctx, "don-1")
	if err != nil {
		t.Fatalf("get donation: %v", err)
	}
	if unchanged.State != domain.DonationPending {
		t.Fatalf("state after failed fence = %s, want pending", unchanged.State)
	}

	fence := storage.CampaignFence{CampaignID: "camp-1", Version: 1}
	if err := store.UpdateDonationFenced(ctx, confirmed, 1, fence); err != nil {
		t.Fatalf("fenced update: %v", err)
	}
	campaign, err := store.GetCampaign(ctx, "camp-1")
	if err != nil {
		t.Fatalf("get campaign: %v", err)
	}
	if campaign.Version != 2 {
		t.Fatalf("campaign version = %d, want 2", campaign.Version)
	}

	missing := storage.CampaignFence{CampaignID: "nope", Version: 1}
	other := seedDonation(t, store, "don-2", "camp-1", "0xtx2", 1)
	if err := store.UpdateDonationFenced(ctx, other, 1, missing); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("missing fence error = %v, want %v", err, storage.ErrNotFound)
	}
}

func TestListDueDonationsSkipsManualAndFuture(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	seedCampaign(t, store, "camp-1", 1000)
	seedDonation(t, store, "don-due", "camp-1", "0xtx1", 10)
	seedDonation(t, store, "don-manual", "camp-1", "", 10)
	future := seedDonation(t, store, "don-future", "camp-1", "0xtx2", 10)
	if err := store.UpdateDonation(ctx, domain.ScheduleCheck(future, testNow.Add(time.Hour), testNow), 1); err != nil {
		t.Fatalf("schedule future: %v", err)
	}

	due, err := store.ListDueDonations(ctx, testNow, 10)
	if err != nil {
		t.Fatalf("list due: %v", err)
	}
	if len(due) != 1 || due[0].ID != "don-due" {
		t.Fatalf("due = %+v, want only don-due", due)
	}

	later, err := store.ListDueDonations(ctx, testNow.Add(2*time.Hour), 10)
	if err != nil {
		t.Fatalf("list due later: %v", err)
	}
	if len(later) != 2 {
		t.Fatalf("due later = %d, want 2", len(later))
	}
	if _, err := store.ListDueDonations(ctx, testNow, 0); err == nil {
		t.Fatal("expected limit error")
	}
}

func TestCreatePackageFence(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	seedCampaign(t, store, "camp-1", 1000)
	seedParty(t, store, "party-1")

	pkg := newPackage("pkg-1", "camp-1", "party-1", 400)
	if err := store.CreatePackage(ctx, pkg, storage.CampaignFence{CampaignID: "camp-1", Version: 1}); err != nil {
		t.Fatalf("create package: %v", err)
	}
	second := newPackage("pkg-2", "camp-1", "party-1", 400)
	if err := store.CreatePackage(ctx, second, storage.CampaignFence{CampaignID: "camp-1", Version: 1}); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("stale fence error = %v, want %v", err, storage.ErrConflict)
	}
	if _, err := store.GetPackage(ctx, "pkg-2"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("rolled back package lookup error = %v", err)
	}
	if err := store.CreatePackage(ctx, second, storage.CampaignFence{CampaignID: "other", Version: 1}); err == nil {
		t.Fatal("expected mismatched fence error")
	}

	packages, err := store.ListPackagesByCampaign(ctx, "camp-1")
	if err != nil {
		t.Fatalf("list packages: %v", err)
	}
	if len(packages) != 1 || packages[0].ID != "pkg-1" || !packages[0].Amount.Equal(decimal.NewFromInt(400)) {
		t.Fatalf("packages = %+v", packages)
	}
}

func TestConcurrentFencedIssuanceAdmitsOne(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	seedCampaign(t, store, "camp-1", 1000)
	seedParty(t, store, "party-1")

	fence := storage.CampaignFence{CampaignID: "camp-1", Version: 1}
	var (
		wg   sync.WaitGroup
		errs = make([]error, 2)
	)
	for i, id := range []string{"pkg-a", "pkg-b"} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			errs[i] = store.CreatePackage(ctx, newPackage(id, "camp-1", "party-1", 400), fence)
		}(i, id)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, storage.ErrConflict):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("succeeded = %d, want 1 (errs=%v)", succeeded, errs)
	}
}

func TestUpdatePackageAndExpiredListing(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	seedCampaign(t, store, "camp-1", 1000)
	seedParty(t, store, "party-1")
	pkg := newPackage("pkg-1", "camp-1", "party-1", 100)
	if err := store.CreatePackage(ctx, pkg, storage.CampaignFence{CampaignID: "camp-1", Version: 1}); err != nil {
		t.Fatalf("create package: %v", err)
	}

	expired, err := store.ListExpiredPackages(ctx, testNow, 10)
	if err != nil {
		t.Fatalf("list expired: %v", err)
	}
	if len(expired) != 0 {
		t.Fatalf("expired before deadline = %d", len(expired))
	}
	expired, err = store.ListExpiredPackages(ctx, pkg.ExpiresAt, 10)
	if err != nil {
		t.Fatalf("list expired: %v", err)
	}
	if len(expired) != 1 {
		t.Fatalf("expired at deadline = %d, want 1", len(expired))
	}

	received, err := domain.MarkPackageReceived(pkg, "user-7", testNow)
	if err != nil {
		t.Fatalf("mark received: %v", err)
	}
	if err := store.UpdatePackage(ctx, received, 1); err != nil {
		t.Fatalf("update package: %v", err)
	}
	if err := store.UpdatePackage(ctx, received, 1); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("stale update error = %v", err)
	}
	got, err := store.GetPackage(ctx, "pkg-1")
	if err != nil {
		t.Fatalf("get package: %v", err)
	}
	if got.Status != domain.PackageReceived || got.ReceivedBy != "user-7" || got.ReceivedAt == nil || got.Version != 2 {
		t.Fatalf("package = %+v", got)
	}
	expired, err = store.ListExpiredPackages(ctx, pkg.ExpiresAt, 10)
	if err != nil {
		t.Fatalf("list expired: %v", err)
	}
	if len(expired) != 0 {
		t.Fatalf("received package listed as expired")
	}
}

func TestPartyRoundTrip(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	party := domain.Party{
		ID: "party-1", Role: domain.PartyVendor, Name: "Water Co", Subject: "user-9",
		Status: domain.PartyPending, SupersedesID: "party-0", Version: 1, CreatedAt: testNow, UpdatedAt: testNow,
	}
	if err := store.CreateParty(ctx, party); err != nil {
		t.Fatalf("create party: %v", err)
	}
	approved, err := domain.ReviewParty(party, domain.DecisionApprove, "rev-1", "ok", testNow)
	if err != nil {
		t.Fatalf("review party: %v", err)
	}
	if err := store.UpdateParty(ctx, approved, 1); err != nil {
		t.Fatalf("update party: %v", err)
	}
	if err := store.UpdateParty(ctx, approved, 1); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("stale update error = %v", err)
	}
	got, err := store.GetParty(ctx, "party-1")
	if err != nil {
		t.Fatalf("get party: %v", err)
	}
	if got.Status != domain.PartyApproved || got.ReviewedBy != "rev-1" || got.SupersedesID != "party-0" || got.Version != 2 {
		t.Fatalf("party = %+v", got)
	}
	if _, err := store.GetParty(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("missing party error = %v", err)
	}
}

func TestReconcileAttemptLog(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	seedCampaign(t, store, "camp-1", 1000)
	seedDonation(t, store, "don-1", "camp-1", "0xtx1", 10)

	for _, attempt := range []storage.ReconcileAttempt{
		{DonationID: "don-1", Outcome: storage.OutcomeRetry, Reason: domain.ReasonOracleUnavailable, Detail: "timeout", AttemptedAt: testNow},
		{DonationID: "don-1", Outcome: storage.OutcomeConfirmed, Confirmations: 12, AttemptedAt: testNow.Add(time.Minute)},
	} {
		if err := store.RecordReconcileAttempt(ctx, attempt); err != nil {
			t.Fatalf("record attempt: %v", err)
		}
	}
	if err := store.RecordReconcileAttempt(ctx, storage.ReconcileAttempt{DonationID: "nope", Outcome: storage.OutcomeRetry}); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("unknown donation error = %v", err)
	}

	attempts, err := store.ListReconcileAttempts(ctx, "don-1")
	if err != nil {
		t.Fatalf("list attempts: %v", err)
	}
	if len(attempts) != 2 {
		t.Fatalf("attempts = %d, want 2", len(attempts))
	}
	if attempts[0].Outcome != storage.OutcomeRetry || attempts[0].Reason != domain.ReasonOracleUnavailable {
		t.Fatalf("first attempt = %+v", attempts[0])
	}
	if attempts[1].Confirmations != 12 || !attempts[1].AttemptedAt.Equal(testNow.Add(time.Minute)) {
		t.Fatalf("second attempt = %+v", attempts[1])
	}
}

func TestCancelledContext(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := store.GetCampaign(ctx, "camp-1"); !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled get error = %v", err)
	}
}
