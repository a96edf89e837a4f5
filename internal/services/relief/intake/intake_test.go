package intake

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	apperrors "github.com/reliefnet/reliefnet/internal/platform/errors"
	"github.com/reliefnet/reliefnet/internal/services/relief/domain"
	"github.com/reliefnet/reliefnet/internal/services/relief/registry"
	"github.com/reliefnet/reliefnet/internal/services/relief/relieftest"
	"github.com/reliefnet/reliefnet/internal/services/relief/storage/sqlite"
)

type fixture struct {
	store    *sqlite.Store
	registry *registry.Registry
	service  *Service
	logs     []string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := relieftest.OpenStore(t)
	clock := relieftest.NewClock()
	reg := registry.New(store, registry.Config{Clock: clock.Now})
	f := &fixture{store: store, registry: reg}
	f.service = New(store, reg, Config{
		Clock:       clock.Now,
		IDGenerator: relieftest.SequentialIDs("don"),
		Logf: func(format string, args ...any) {
			f.logs = append(f.logs, fmt.Sprintf(format, args...))
		},
	})
	return f
}

func pledge(campaignID, ref string, amount int64) domain.SubmitDonationInput {
	return domain.SubmitDonationInput{
		CampaignID:   campaignID,
		DonorAddress: "0xdonor",
		Amount:       relieftest.Amount(amount),
		ChainTxRef:   ref,
	}
}

func TestSubmitCreatesPendingDonation(t *testing.T) {
	f := newFixture(t)
	relieftest.SeedCampaign(t, f.store, "c1", 1000)

	donation, created, err := f.service.Submit(context.Background(), relieftest.Donor, pledge("c1", "0xtx1", 100))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !created {
		t.Fatal("expected created")
	}
	if donation.State != domain.DonationPending || donation.Manual || donation.Currency != domain.DefaultCurrency {
		t.Fatalf("donation = %+v", donation)
	}
	if donation.DonorAccountID != relieftest.Donor.Subject {
		t.Fatalf("donor account = %q, want caller subject", donation.DonorAccountID)
	}
	stored, err := f.service.Get(context.Background(), donation.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.ChainTxRef != "0xtx1" {
		t.Fatalf("stored ref = %q", stored.ChainTxRef)
	}
}

func TestSubmitBindsDonorAccount(t *testing.T) {
	f := newFixture(t)
	relieftest.SeedCampaign(t, f.store, "c1", 1000)
	ctx := context.Background()

	input := pledge("c1", "0xother", 100)
	input.DonorAccountID = "someone-else"
	if _, _, err := f.service.Submit(ctx, relieftest.Donor, input); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("err = %v, want %v", err, domain.ErrPermissionDenied)
	}
	if _, err := f.store.GetDonationByChainTxRef(ctx, "0xother"); err == nil {
		t.Fatal("expected no donation recorded for a foreign account")
	}

	input = pledge("c1", "0xown", 100)
	input.DonorAccountID = relieftest.Donor.Subject
	own, _, err := f.service.Submit(ctx, relieftest.Donor, input)
	if err != nil {
		t.Fatalf("Submit own account: %v", err)
	}
	if own.DonorAccountID != relieftest.Donor.Subject {
		t.Fatalf("donor account = %q, want %q", own.DonorAccountID, relieftest.Donor.Subject)
	}

	input = pledge("c1", "0xbehalf", 100)
	input.DonorAccountID = "someone-else"
	behalf, _, err := f.service.Submit(ctx, relieftest.Admin, input)
	if err != nil {
		t.Fatalf("Submit as admin: %v", err)
	}
	if behalf.DonorAccountID != "someone-else" {
		t.Fatalf("donor account = %q, want someone-else", behalf.DonorAccountID)
	}
}

func TestSubmitIsIdempotentOnChainRef(t *testing.T) {
	f := newFixture(t)
	relieftest.SeedCampaign(t, f.store, "c1", 1000)
	ctx := context.Background()

	first, created, err := f.service.Submit(ctx, relieftest.Donor, pledge("c1", "0xtx1", 100))
	if err != nil || !created {
		t.Fatalf("first submit: created=%v err=%v", created, err)
	}
	second, created, err := f.service.Submit(ctx, relieftest.Donor, pledge("c1", "0xtx1", 100))
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if created || second.ID != first.ID {
		t.Fatalf("second = %+v created=%v, want existing %s", second, created, first.ID)
	}

	donations, err := f.store.ListDonationsByCampaign(ctx, "c1")
	if err != nil {
		t.Fatalf("ListDonationsByCampaign: %v", err)
	}
	if len(donations) != 1 {
		t.Fatalf("donations = %d, want 1", len(donations))
	}
	if len(f.logs) != 0 {
		t.Fatalf("unexpected duplicate log for identical resubmission: %v", f.logs)
	}
}

func TestSubmitReturnsExistingEvenAfterClose(t *testing.T) {
	f := newFixture(t)
	relieftest.SeedCampaign(t, f.store, "c1", 1000)
	ctx := context.Background()
	first, _, err := f.service.Submit(ctx, relieftest.Donor, pledge("c1", "0xtx1", 100))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := f.registry.CloseCampaign(ctx, relieftest.Admin, "c1"); err != nil {
		t.Fatalf("CloseCampaign: %v", err)
	}
	again, created, err := f.service.Submit(ctx, relieftest.Donor, pledge("c1", "0xtx1", 999))
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if created || again.ID != first.ID {
		t.Fatalf("resubmit = %+v, want existing", again)
	}
	if len(f.logs) != 1 {
		t.Fatalf("logs = %v, want one mismatch line", f.logs)
	}
}

func TestSubmitConcurrentRetriesYieldOneRecord(t *testing.T) {
	f := newFixture(t)
	relieftest.SeedCampaign(t, f.store, "c1", 1000)
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make([]string, 4)
	errs := make([]error, 4)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			donation, _, err := f.service.Submit(ctx, relieftest.Donor, pledge("c1", "0xsame", 50))
			ids[i], errs[i] = donation.ID, err
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
		if ids[i] != ids[0] {
			t.Fatalf("ids = %v, want all equal", ids)
		}
	}
	donations, err := f.store.ListDonationsByCampaign(ctx, "c1")
	if err != nil {
		t.Fatalf("ListDonationsByCampaign: %v", err)
	}
	if len(donations) != 1 {
		t.Fatalf("donations = %d, want 1", len(donations))
	}
}

func TestSubmitValidation(t *testing.T) {
	f := newFixture(t)
	relieftest.SeedCampaign(t, f.store, "c1", 1000)
	closed := relieftest.SeedCampaign(t, f.store, "c2", 1000)
	if _, err := f.registry.CloseCampaign(context.Background(), relieftest.Admin, closed.ID); err != nil {
		t.Fatalf("CloseCampaign: %v", err)
	}

	tests := []struct {
		name  string
		actor domain.Actor
		input domain.SubmitDonationInput
		code  apperrors.Code
	}{
		{name: "unknown campaign", actor: relieftest.Donor, input: pledge("nope", "0x1", 10), code: apperrors.CodeCampaignNotAcceptingFunds},
		{name: "closed campaign", actor: relieftest.Donor, input: pledge("c2", "0x2", 10), code: apperrors.CodeCampaignNotAcceptingFunds},
		{name: "zero amount", actor: relieftest.Donor, input: pledge("c1", "0x3", 0), code: apperrors.CodeAmountInvalid},
		{name: "negative amount", actor: relieftest.Donor, input: pledge("c1", "0x4", -5), code: apperrors.CodeAmountInvalid},
		{name: "reviewer cannot donate", actor: relieftest.Reviewer, input: pledge("c1", "0x5", 10), code: apperrors.CodePermissionDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := f.service.Submit(context.Background(), tt.actor, tt.input)
			if apperrors.CodeOf(err) != tt.code {
				t.Fatalf("Submit error = %v, want %s", err, tt.code)
			}
		})
	}
	if _, _, err := f.service.Submit(context.Background(), relieftest.Donor, pledge("nope", "0x9", 10)); apperrors.KindOf(err) != apperrors.KindValidation {
		t.Fatalf("unknown campaign kind = %s, want validation", apperrors.KindOf(err))
	}
}

func TestSubmitRejectsCurrencyMismatch(t *testing.T) {
	f := newFixture(t)
	relieftest.SeedCampaign(t, f.store, "c1", 1000)
	input := pledge("c1", "0x1", 10)
	input.Currency = "eurc"
	_, _, err := f.service.Submit(context.Background(), relieftest.Donor, input)
	if apperrors.CodeOf(err) != apperrors.CodeDonationCurrencyMismatch {
		t.Fatalf("currency mismatch error = %v", err)
	}
}

func TestSubmitRejectsPledgeOverTarget(t *testing.T) {
	f := newFixture(t)
	relieftest.SeedCampaign(t, f.store, "c1", 1000)
	relieftest.SeedDonation(t, f.store, "a", "c1", "0xa", 600, domain.DonationConfirmed)

	_, _, err := f.service.Submit(context.Background(), relieftest.Donor, pledge("c1", "0xb", 500))
	if !errors.Is(err, domain.ErrDonationOverTarget) {
		t.Fatalf("over target error = %v", err)
	}
	funding, err := f.registry.Funding(context.Background(), "c1")
	if err != nil {
		t.Fatalf("Funding: %v", err)
	}
	if !funding.Confirmed.Equal(relieftest.Amount(600)) || !funding.Pending.IsZero() {
		t.Fatalf("funding = %+v", funding)
	}
	if _, _, err := f.service.Submit(context.Background(), relieftest.Donor, pledge("c1", "0xc", 400)); err != nil {
		t.Fatalf("exact fit submit: %v", err)
	}
}

func TestResolveManual(t *testing.T) {
	f := newFixture(t)
	relieftest.SeedCampaign(t, f.store, "c1", 1000)
	ctx := context.Background()

	manual, _, err := f.service.Submit(ctx, relieftest.Admin, pledge("c1", "", 100))
	if err != nil {
		t.Fatalf("Submit manual: %v", err)
	}
	if !manual.Manual {
		t.Fatal("expected manual donation")
	}
	chain, _, err := f.service.Submit(ctx, relieftest.Donor, pledge("c1", "0xtx", 100))
	if err != nil {
		t.Fatalf("Submit chain: %v", err)
	}

	if _, err := f.service.ResolveManual(ctx, relieftest.Donor, manual.ID, true, ""); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("donor resolve error = %v", err)
	}
	if _, err := f.service.ResolveManual(ctx, relieftest.Admin, chain.ID, true, ""); !errors.Is(err, domain.ErrDonationNotManual) {
		t.Fatalf("chain resolve error = %v", err)
	}
	if _, err := f.service.ResolveManual(ctx, relieftest.Admin, chain.ID, false, "nope"); !errors.Is(err, domain.ErrDonationNotManual) {
		t.Fatalf("chain reject error = %v", err)
	}

	confirmed, err := f.service.ResolveManual(ctx, relieftest.Admin, manual.ID, true, "wire received")
	if err != nil {
		t.Fatalf("ResolveManual confirm: %v", err)
	}
	if confirmed.State != domain.DonationConfirmed || confirmed.ResolvedBy != relieftest.Admin.Subject {
		t.Fatalf("confirmed = %+v", confirmed)
	}
	if _, err := f.service.ResolveManual(ctx, relieftest.Admin, manual.ID, false, "oops"); apperrors.KindOf(err) != apperrors.KindInvalidState {
		t.Fatalf("resolve terminal error = %v", err)
	}

	other, _, err := f.service.Submit(ctx, relieftest.Admin, pledge("c1", "", 5))
	if err != nil {
		t.Fatalf("Submit manual: %v", err)
	}
	rejected, err := f.service.ResolveManual(ctx, relieftest.Admin, other.ID, false, "never arrived")
	if err != nil {
		t.Fatalf("ResolveManual reject: %v", err)
	}
	if rejected.State != domain.DonationFailed || rejected.FailureReason != domain.ReasonManualRejected || rejected.Version != 2 {
		t.Fatalf("rejected = %+v", rejected)
	}
}
