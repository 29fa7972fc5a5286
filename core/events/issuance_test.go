package events

import (
	"testing"
	"time"

	"chronicles/crypto"
)

func TestAssetMintedEvent(t *testing.T) {
	owner := crypto.Identity{7}
	evt := AssetMinted{
		Role:        "Standard",
		Asset:       crypto.Identity{1},
		Collection:  crypto.Identity{2},
		Owner:       owner,
		Number:      4,
		TreasuryFee: 30_000_000,
		AntiscamFee: 20_000_000,
		MintedAt:    time.Unix(1700000000, 0),
	}.Event()
	if evt.Type != TypeAssetMinted {
		t.Fatalf("unexpected type: %s", evt.Type)
	}
	if evt.Attributes["role"] != "standard" {
		t.Fatalf("unexpected role attr: %s", evt.Attributes["role"])
	}
	if evt.Attributes["owner"] != owner.String() {
		t.Fatalf("unexpected owner attr: %s", evt.Attributes["owner"])
	}
	if evt.Attributes["treasuryFee"] != "30000000" || evt.Attributes["antiscamFee"] != "20000000" {
		t.Fatalf("unexpected fee attrs: %+v", evt.Attributes)
	}
	if evt.Attributes["mintedAt"] != "1700000000" {
		t.Fatalf("unexpected timestamp: %s", evt.Attributes["mintedAt"])
	}
}

type bareEvent struct{}

func (bareEvent) EventType() string { return "bare" }

type recorder struct{ got []Event }

func (r *recorder) Emit(evt Event) { r.got = append(r.got, evt) }

func TestRenderAndMulti(t *testing.T) {
	if got := Render(bareEvent{}); got.Type != "bare" || len(got.Attributes) != 0 {
		t.Fatalf("unexpected bare render: %+v", got)
	}
	if got := Render(PauseToggled{Paused: true}); got.Attributes["paused"] != "true" {
		t.Fatalf("unexpected pause render: %+v", got)
	}

	a, b := &recorder{}, &recorder{}
	Multi{a, nil, b}.Emit(SupplyLow{Role: "scammed", Remaining: 2})
	if len(a.got) != 1 || len(b.got) != 1 {
		t.Fatalf("expected fan-out to both emitters, got %d and %d", len(a.got), len(b.got))
	}
}
