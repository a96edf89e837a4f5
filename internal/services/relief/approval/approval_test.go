package approval

import (
	"context"
	"errors"
	"testing"

	apperrors "github.com/reliefnet/reliefnet/internal/platform/errors"
	"github.com/reliefnet/reliefnet/internal/services/relief/domain"
	"github.com/reliefnet/reliefnet/internal/services/relief/relieftest"
)

func newWorkflow(t *testing.T) *Workflow {
	t.Helper()
	store := relieftest.OpenStore(t)
	clock := relieftest.NewClock()
	return New(store, Config{Clock: clock.Now, IDGenerator: relieftest.SequentialIDs("party")})
}

func TestRegisterSelfInOwnRole(t *testing.T) {
	wf := newWorkflow(t)
	ctx := context.Background()

	party, err := wf.Register(ctx, relieftest.Beneficiary, domain.RegisterPartyInput{
		Role: domain.PartyBeneficiary, Name: "Shelter North", Subject: "someone-else",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if party.Subject != relieftest.Beneficiary.Subject {
		t.Fatalf("subject = %q, want caller subject", party.Subject)
	}
	if party.Status != domain.PartyPending {
		t.Fatalf("status = %s, want pending", party.Status)
	}

	if _, err := wf.Register(ctx, relieftest.Beneficiary, domain.RegisterPartyInput{Role: domain.PartyVendor, Name: "X"}); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("cross-role register error = %v", err)
	}
	if _, err := wf.Register(ctx, relieftest.Donor, domain.RegisterPartyInput{Role: domain.PartyVendor, Name: "X"}); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("donor register error = %v", err)
	}
}

func TestAdminRegistersOnBehalf(t *testing.T) {
	wf := newWorkflow(t)
	party, err := wf.Register(context.Background(), relieftest.Admin, domain.RegisterPartyInput{
		Role: domain.PartyVendor, Name: "Water Co", Subject: "vendor-9",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if party.Subject != "vendor-9" || party.Role != domain.PartyVendor {
		t.Fatalf("party = %+v", party)
	}
}

func TestReviewOnlyByReviewer(t *testing.T) {
	wf := newWorkflow(t)
	ctx := context.Background()
	party, err := wf.Register(ctx, relieftest.Vendor, domain.RegisterPartyInput{Role: domain.PartyVendor, Name: "Water Co"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := wf.Approve(ctx, relieftest.Admin, party.ID, ""); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("admin approve error = %v", err)
	}
	approved, err := wf.Approve(ctx, relieftest.Reviewer, party.ID, "licensed")
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if approved.Status != domain.PartyApproved || approved.Version != 2 || approved.ReviewedBy != relieftest.Reviewer.Subject {
		t.Fatalf("approved = %+v", approved)
	}
}

func TestReviewTransitionsAreOneDirectional(t *testing.T) {
	wf := newWorkflow(t)
	ctx := context.Background()

	for _, first := range []domain.ReviewDecision{domain.DecisionApprove, domain.DecisionReject} {
		party, err := wf.Register(ctx, relieftest.Vendor, domain.RegisterPartyInput{Role: domain.PartyVendor, Name: "V"})
		if err != nil {
			t.Fatalf("Register: %v", err)
		}
		reviewed, err := wf.Review(ctx, relieftest.Reviewer, party.ID, first, "")
		if err != nil {
			t.Fatalf("Review(%s): %v", first, err)
		}
		for _, again := range []domain.ReviewDecision{domain.DecisionApprove, domain.DecisionReject} {
			_, err := wf.Review(ctx, relieftest.Reviewer, party.ID, again, "")
			if !errors.Is(err, domain.ErrPartyNotPending) || apperrors.KindOf(err) != apperrors.KindInvalidState {
				t.Fatalf("%s then %s error = %v, want invalid state", first, again, err)
			}
		}
		stored, err := wf.Get(ctx, party.ID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if stored.Status != reviewed.Status {
			t.Fatalf("stored status = %s, want %s", stored.Status, reviewed.Status)
		}
	}
}

func TestResubmissionAfterRejection(t *testing.T) {
	wf := newWorkflow(t)
	ctx := context.Background()
	first, err := wf.Register(ctx, relieftest.Vendor, domain.RegisterPartyInput{Role: domain.PartyVendor, Name: "V"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, err := wf.Register(ctx, relieftest.Vendor, domain.RegisterPartyInput{Role: domain.PartyVendor, Name: "V", SupersedesID: first.ID}); !errors.Is(err, domain.ErrPartySupersedeInvalid) {
		t.Fatalf("supersede pending error = %v", err)
	}
	if _, err := wf.Reject(ctx, relieftest.Reviewer, first.ID, "missing license"); err != nil {
		t.Fatalf("Reject: %v", err)
	}

	other := domain.Actor{Subject: "vendor-2", Role: domain.RoleVendor}
	if _, err := wf.Register(ctx, other, domain.RegisterPartyInput{Role: domain.PartyVendor, Name: "V", SupersedesID: first.ID}); !errors.Is(err, domain.ErrPartySupersedeInvalid) {
		t.Fatalf("foreign supersede error = %v", err)
	}

	second, err := wf.Register(ctx, relieftest.Vendor, domain.RegisterPartyInput{Role: domain.PartyVendor, Name: "V", SupersedesID: first.ID})
	if err != nil {
		t.Fatalf("re-register: %v", err)
	}
	if second.ID == first.ID || second.SupersedesID != first.ID || second.Status != domain.PartyPending {
		t.Fatalf("second = %+v", second)
	}
	stillRejected, err := wf.Get(ctx, first.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stillRejected.Status != domain.PartyRejected {
		t.Fatalf("original status = %s, want rejected", stillRejected.Status)
	}
}

func TestRequireApprovedReadsCurrentStatus(t *testing.T) {
	wf := newWorkflow(t)
	ctx := context.Background()
	party, err := wf.Register(ctx, relieftest.Beneficiary, domain.RegisterPartyInput{Role: domain.PartyBeneficiary, Name: "B"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := wf.RequireApproved(ctx, party.ID, domain.PartyBeneficiary); apperrors.KindOf(err) != apperrors.KindNotApproved {
		t.Fatalf("pending require error = %v", err)
	}
	if _, err := wf.Approve(ctx, relieftest.Reviewer, party.ID, ""); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if _, err := wf.RequireApproved(ctx, party.ID, domain.PartyBeneficiary); err != nil {
		t.Fatalf("approved require: %v", err)
	}
	if _, err := wf.RequireApproved(ctx, "missing", domain.PartyBeneficiary); apperrors.KindOf(err) != apperrors.KindNotFound {
		t.Fatalf("missing require error = %v", err)
	}
}
