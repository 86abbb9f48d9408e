package clause

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetector_Has(t *testing.T) {
	d := New()

	tests := []struct {
		name string
		id   string
		text string
		want bool
	}{
		{"data protection phrase", DataProtection, "The parties shall comply with Data Protection legislation.", true},
		{"gdpr acronym", DataProtection, "Processing complies with the UK GDPR.", true},
		{"personal data", DataProtection, "Each party shall protect personal data.", true},
		{"no data protection", DataProtection, "The supplier shall deliver widgets.", false},

		{"notice period phrase", NoticePeriod, "The notice period of 30 days applies.", true},
		{"weeks notice", NoticePeriod, "Either party may terminate on 4 weeks' notice.", true},
		{"notice of n", NoticePeriod, "by giving notice of at least 3 months", true},
		{"no notice", NoticePeriod, "This agreement runs for one year.", false},

		{"health and safety", HealthAndSafety, "The employee shall observe health and safety rules.", true},
		{"health & safety", HealthAndSafety, "Health & Safety policy applies.", true},

		{"death exclusion", DeathInjuryExclusion, "The Supplier shall not be liable for death or personal injury.", true},
		{"excludes injury", DeathInjuryExclusion, "The Company excludes all liability for personal injury howsoever caused.", true},
		{"carve-out wording", DeathInjuryExclusion, "Nothing in this Agreement limits or excludes liability for death or personal injury caused by negligence.", false},
		{"carve-out after sentence", DeathInjuryExclusion, "Terms apply. Nothing in this clause shall exclude liability for death.", false},
		{"exclusion after carve-out lead", DeathInjuryExclusion, "Nothing in this clause limits the Supplier's right to invoice, and the Supplier shall not be liable for death or personal injury caused by its negligence.", true},
		{"exclusion after however", DeathInjuryExclusion, "Nothing in this clause affects payment; however the Company excludes all liability for personal injury.", true},
		{"exclusion after but", DeathInjuryExclusion, "Nothing in this Schedule restricts delivery but the Supplier shall not be liable for death arising from misuse.", true},
		{"carve-out then exclusion", DeathInjuryExclusion, "Nothing in this Agreement limits liability for death. The Supplier shall not be liable for personal injury.", true},

		{"five year non-compete", ExcessiveNonCompete, "The Employee agrees to a non-compete covenant lasting 5 years.", true},
		{"worldwide restraint", ExcessiveNonCompete, "The Consultant shall not compete with the Company worldwide.", true},
		{"reasonable non-compete", ExcessiveNonCompete, "A non-compete of 6 months within Greater London applies.", false},

		{"price fixing", PriceFixing, "The parties agree to fix prices for the products.", true},
		{"resale price", PriceFixing, "Distributor shall observe the minimum resale price.", true},
		{"market sharing", MarketSharing, "The parties shall allocate territories between them.", true},
		{"no cartel", MarketSharing, "The parties compete freely.", false},

		{"unknown id substring", "force majeure", "This clause covers FORCE MAJEURE events.", true},
		{"unknown id absent", "arbitration", "Disputes go to the courts.", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, d.Has(tt.text, tt.id))
		})
	}
}

func TestDetector_EmptyText(t *testing.T) {
	d := New()
	ids := make([]string, 0, len(d.patterns))
	for id := range d.patterns {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	assert.Len(t, ids, 7)
	for _, id := range ids {
		assert.False(t, d.Has("", id), id)
	}
}

func TestDetector_Matches(t *testing.T) {
	d := New()

	text := "GDPR applies. Health and safety duties apply."
	assert.Equal(t,
		[]string{DataProtection, HealthAndSafety},
		d.Matches(text, NoticePeriod, DataProtection, HealthAndSafety),
	)
	assert.Nil(t, d.Matches(text, PriceFixing))
}
