package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplicationStatusTransition(t *testing.T) {
	tests := []struct {
		from    ApplicationStatus
		to      ApplicationStatus
		wantErr bool
	}{
		{from: ApplicationDraft, to: ApplicationSubmitted},
		{from: ApplicationSubmitted, to: ApplicationSubmitted},
		{from: ApplicationSubmitted, to: ApplicationPending},
		{from: ApplicationSubmitted, to: ApplicationAdmitted},
		{from: ApplicationPending, to: ApplicationRejected},
		{from: ApplicationDraft, to: ApplicationAdmitted, wantErr: true},
		{from: ApplicationAdmitted, to: ApplicationRejected, wantErr: true},
		{from: ApplicationRejected, to: ApplicationAdmitted, wantErr: true},
		{from: ApplicationAdmitted, to: ApplicationAdmitted, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			got, err := tt.from.Transition(tt.to)
			if tt.wantErr {
				var te *TransitionError
				require.True(t, errors.As(err, &te))
				assert.Equal(t, tt.from, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.to, got)
		})
	}
}

func TestMissingDocuments(t *testing.T) {
	app := &Application{ExamResults: ExamResults{Sittings: []ExamSitting{{ExamType: "WASSCE"}, {ExamType: "NOVDEC"}}}}

	missing := MissingDocuments(app, []*Document{{Kind: DocumentResultSlip}, {Kind: DocumentPassportPhoto}})
	assert.Equal(t, []string{"result_slip (1 of 2)", "birth_certificate"}, missing)

	complete := []*Document{
		{Kind: DocumentResultSlip}, {Kind: DocumentResultSlip},
		{Kind: DocumentBirthCertificate}, {Kind: DocumentPassportPhoto},
	}
	assert.Empty(t, MissingDocuments(app, complete))
}

func TestMissingDocumentsRequiresOneSlipWithoutSittings(t *testing.T) {
	missing := MissingDocuments(&Application{}, nil)
	assert.Len(t, missing, 3)
}

func TestLookupGrade(t *testing.T) {
	bands := []GradeBand{
		{MinScore: 70, Grade: "B", Point: 3.0},
		{MinScore: 80, Grade: "A", Point: 4.0},
		{MinScore: 75, Grade: "B+", Point: 3.5},
	}

	band, ok := LookupGrade(bands, 77)
	require.True(t, ok)
	assert.Equal(t, "B+", band.Grade)
	assert.Equal(t, 3.5, band.Point)

	band, ok = LookupGrade(bands, 75)
	require.True(t, ok)
	assert.Equal(t, "B+", band.Grade)

	_, ok = LookupGrade(bands, 50)
	assert.False(t, ok)

	band, ok = LookupGrade(nil, 50)
	require.True(t, ok)
	assert.Equal(t, "F", band.Grade)
}

func TestVoucherStatusCanTransition(t *testing.T) {
	assert.True(t, VoucherUnsold.CanTransition(VoucherSold))
	assert.True(t, VoucherSold.CanTransition(VoucherUsed))
	assert.False(t, VoucherUsed.CanTransition(VoucherSold))
	assert.False(t, VoucherUnsold.CanTransition(VoucherUsed))
}
