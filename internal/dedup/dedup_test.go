package dedup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emontero/opphunter/internal/core/domain"
)

func window(cands ...domain.Candidate) []domain.Candidate {
	for i := range cands {
		if cands[i].DiscoveredAt.IsZero() {
			cands[i].DiscoveredAt = time.Now().Add(-time.Hour)
		}
	}

	return cands
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "lowercases and strips punctuation",
			in:   "Banco Santander adquiere Fintech!",
			want: "banco santander adquiere fintech",
		},
		{
			name: "removes urls and bare numbers",
			in:   "Tesla invierte 500 https://example.com/a en España",
			want: "tesla invierte españa",
		},
		{
			name: "drops stop words and short words",
			in:   "the deal and the merger is on",
			want: "deal merger",
		},
		{
			name: "empty input",
			in:   "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestFingerprintStable(t *testing.T) {
	a := Fingerprint("Telefónica invierte en transformación digital")
	b := Fingerprint("Telefónica invierte en transformación digital")
	c := Fingerprint("BBVA lanza nuevo producto fintech")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestIsDuplicateIdempotent(t *testing.T) {
	d := New(DefaultConfig())
	text := "Banco Santander adquiere la fintech mexicana Kueski por 500 millones"

	dup, match := d.IsDuplicate(domain.Candidate{Text: text}, window(domain.Candidate{ID: "1", Text: text}))
	require.True(t, dup)
	assert.Equal(t, "1", match.CandidateID)
}

func TestIsDuplicateAcrossOutlets(t *testing.T) {
	d := New(DefaultConfig())

	prev := domain.Candidate{
		ID:   "1",
		Text: "Banco Santander adquiere la fintech mexicana Kueski por 500 millones",
	}
	next := domain.Candidate{
		Text: "Santander adquiere fintech mexicana Kueski en operación de 500 millones",
	}

	dup, match := d.IsDuplicate(next, window(prev))
	require.True(t, dup)
	assert.Equal(t, ReasonTextSimilarity, match.Reason)
	assert.GreaterOrEqual(t, match.Similarity, 0.75)
}

func TestIsDuplicateInvertedPhrasing(t *testing.T) {
	d := New(DefaultConfig())

	prev := domain.Candidate{ID: "1", Text: "Kueski adquirida por Santander"}
	next := domain.Candidate{Text: "Santander adquiere Kueski"}

	dup, match := d.IsDuplicate(next, window(prev))
	require.True(t, dup)
	assert.Equal(t, ReasonEntityOverlap, match.Reason)
}

func TestIsDuplicateSameCompanyModerateSimilarity(t *testing.T) {
	d := New(DefaultConfig())

	prev := domain.Candidate{
		ID:          "1",
		Text:        "Santander anuncia inversión millonaria en banca digital mexicana",
		CompanyName: "Banco Santander",
	}
	next := domain.Candidate{
		Text:        "Santander apuesta por la banca digital con nueva inversión",
		CompanyName: "Santander",
	}

	dup, match := d.IsDuplicate(next, window(prev))
	require.True(t, dup)
	assert.Contains(t, []string{ReasonSameCompany, ReasonSharedEntities}, match.Reason)
}

func TestIsDuplicateDifferentStories(t *testing.T) {
	d := New(DefaultConfig())

	prev := domain.Candidate{ID: "1", Text: "Amazon expande su negocio de cloud computing en Colombia"}
	next := domain.Candidate{Text: "Repsol descubre yacimiento petrolífero frente a las costas de Brasil"}

	dup, _ := d.IsDuplicate(next, window(prev))
	assert.False(t, dup)
}

func TestIsDuplicateEmptyText(t *testing.T) {
	d := New(DefaultConfig())

	dup, _ := d.IsDuplicate(domain.Candidate{Text: ""}, window(domain.Candidate{ID: "1", Text: "anything at all here"}))
	assert.False(t, dup)
}

func TestIsDuplicateIgnoresEntriesOutsideWindow(t *testing.T) {
	d := New(DefaultConfig())
	text := "Banco Santander adquiere la fintech mexicana Kueski por 500 millones"

	old := domain.Candidate{
		ID:           "1",
		Text:         text,
		DiscoveredAt: time.Now().AddDate(0, 0, -10),
	}

	dup, _ := d.IsDuplicate(domain.Candidate{Text: text}, []domain.Candidate{old})
	assert.False(t, dup)
}
