package practitioners

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/clinical-docs/constants"
	"github.com/joseph-ayodele/clinical-docs/internal/common"
	"github.com/joseph-ayodele/clinical-docs/internal/fhir"
	"github.com/joseph-ayodele/clinical-docs/internal/registry"
)

func TestSplitName(t *testing.T) {
	tests := []struct {
		name   string
		given  string
		family string
	}{
		{"Jane Doe", "Jane", "Doe"},
		{"  Jane   Doe ", "Jane", "Doe"},
		{"Cher", "Cher", ""},
		// only the first two tokens survive
		{"Mary Jane Watson", "Mary", "Jane"},
		{"Ana de la Cruz", "Ana", "de"},
		{"", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			given, family := SplitName(tt.name)
			assert.Equal(t, tt.given, given)
			assert.Equal(t, tt.family, family)
		})
	}
}

func TestFindOrCreateCreatesOnce(t *testing.T) {
	reg := registry.NewMemory(nil)
	r := NewResolver(reg, nil, nil)
	ctx := context.Background()

	first, err := r.FindOrCreate(ctx, "Jane Doe")
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.NotEmpty(t, first.ID)

	writes := reg.WritesOf(constants.ResourcePractitioner)
	require.Len(t, writes, 1)
	var p fhir.Practitioner
	require.NoError(t, (&registry.Stored{Body: writes[0].Body}).Decode(&p))
	assert.Equal(t, []string{"Jane"}, p.Name[0].Given)
	assert.Equal(t, "Doe", p.Name[0].Family)
	require.Len(t, p.Qualification, 1)
	assert.Equal(t, constants.PractitionerQualificationCode, p.Qualification[0].Code.Coding[0].Code)
	assert.Equal(t, constants.PractitionerQualificationSystem, p.Qualification[0].Code.Coding[0].System)

	second, err := r.FindOrCreate(ctx, "Jane Doe")
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, reg.WritesOf(constants.ResourcePractitioner), 1)
}

func TestFindOrCreateReusesFirstMatch(t *testing.T) {
	reg := registry.NewMemory(nil)
	require.NoError(t, reg.Put(constants.ResourcePractitioner, "first", fhir.Practitioner{Name: []fhir.HumanName{{Given: []string{"John"}, Family: "Smith"}}}))
	require.NoError(t, reg.Put(constants.ResourcePractitioner, "second", fhir.Practitioner{Name: []fhir.HumanName{{Given: []string{"John"}, Family: "Smith"}}}))

	got, err := NewResolver(reg, nil, nil).FindOrCreate(context.Background(), "John Smith")
	require.NoError(t, err)
	assert.Equal(t, "first", got.ID)
	assert.False(t, got.Created)
	assert.Empty(t, reg.Writes())
}

func TestFindOrCreateMultiTokenNameSplit(t *testing.T) {
	reg := registry.NewMemory(nil)
	_, err := NewResolver(reg, nil, nil).FindOrCreate(context.Background(), "Mary Jane Watson")
	require.NoError(t, err)

	writes := reg.WritesOf(constants.ResourcePractitioner)
	require.Len(t, writes, 1)
	var p fhir.Practitioner
	require.NoError(t, (&registry.Stored{Body: writes[0].Body}).Decode(&p))
	assert.Equal(t, []string{"Mary"}, p.Name[0].Given)
	assert.Equal(t, "Jane", p.Name[0].Family)
}

func TestFindOrCreateRejectsSentinelAndEmpty(t *testing.T) {
	reg := registry.NewMemory(nil)
	r := NewResolver(reg, nil, nil)

	for _, name := range []string{constants.UnknownProvider, "", "   "} {
		_, err := r.FindOrCreate(context.Background(), name)
		require.Error(t, err, name)
		assert.True(t, errors.Is(err, common.ErrValidation))
	}
	assert.Zero(t, reg.Calls("search", constants.ResourcePractitioner))
	assert.Zero(t, reg.Calls("create", constants.ResourcePractitioner))
}

func TestFindOrCreateSurfacesRegistryErrors(t *testing.T) {
	for _, op := range []string{"search", "create"} {
		t.Run(op, func(t *testing.T) {
			reg := registry.NewMemory(nil)
			reg.FailWith(func(gotOp, _ string, _ int) error {
				if gotOp == op {
					return errors.New("registry down")
				}
				return nil
			})
			_, err := NewResolver(reg, nil, nil).FindOrCreate(context.Background(), "Jane Doe")
			require.Error(t, err)
			assert.True(t, errors.Is(err, common.ErrRegistry))
		})
	}
}

func TestFindOrCreateConcurrentSameName(t *testing.T) {
	reg := registry.NewMemory(nil)
	r := NewResolver(reg, NewKeyedMutex(), nil)

	const n = 16
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := r.FindOrCreate(context.Background(), "Dr Smith")
			assert.NoError(t, err)
			ids[i] = got.ID
		}(i)
	}
	wg.Wait()

	assert.Len(t, reg.WritesOf(constants.ResourcePractitioner), 1)
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}
