package entity

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/guregu/null"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/nerrad567/econet-bridge/internal/bridges/econet"
	"github.com/nerrad567/econet-bridge/internal/infrastructure/config"
	"github.com/nerrad567/econet-bridge/internal/infrastructure/database"
	"github.com/nerrad567/econet-bridge/migrations"
)

func testEntry() econet.Entry {
	return econet.Entry{
		ID: "entry-1",
		Controller: econet.ControllerInfo{
			UID:   "abc123",
			Host:  "http://192.168.1.50",
			Model: "ecoNET300",
		},
	}
}

func controllerSensor(key string) *econet.Sensor {
	return econet.NewControllerSensor(econet.BuildDescriptor(key, nil), testEntry())
}

// openMigratedDB opens a temp SQLite file with the real schema applied.
func openMigratedDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{
		Path:        filepath.Join(t.TempDir(), "econet.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Migrate(context.Background(), migrations.FS))
	return db
}

// =============================================================================
// Sensor record
// =============================================================================

func TestFromSensor(t *testing.T) {
	s := controllerSensor("tempCO")

	rec := FromSensor("entry-1", s)
	assert.Equal(t, "abc123-tempCO", rec.UniqueID)
	assert.Equal(t, "entry-1", rec.EntryID)
	assert.Equal(t, "tempCO", rec.Key)
	assert.Equal(t, "temp_co", rec.TranslationKey)
	assert.Equal(t, econet.KindController, rec.Kind)
	assert.Equal(t, econet.UnitCelsius, rec.Unit)
	assert.Equal(t, econet.DeviceClassTemperature, rec.DeviceClass)
	assert.Equal(t, 1, rec.Precision)
	assert.False(t, rec.UpdatedAt.Valid, "no value before first sync")
	assert.Nil(t, rec.State())

	s.SyncState(55.5)
	rec = FromSensor("entry-1", s)
	assert.Equal(t, 55.5, rec.State())
	assert.True(t, rec.UpdatedAt.Valid)
}

func TestFromSensor_Mixer(t *testing.T) {
	s := econet.NewMixerSensor(econet.BuildDescriptor("mixerTemp2", nil), testEntry(), 2)

	rec := FromSensor("entry-1", s)
	assert.Equal(t, econet.KindMixer, rec.Kind)
	assert.Equal(t, 2, rec.SubIndex)
	assert.NoError(t, rec.Validate())
}

func TestSensorSetValue(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		value     any
		wantValue null.Float
		wantText  null.String
		wantState any
	}{
		{"float", 55.5, null.FloatFrom(55.5), null.String{}, 55.5},
		{"int", 3, null.FloatFrom(3), null.String{}, 3.0},
		{"true", true, null.FloatFrom(1), null.String{}, 1.0},
		{"false", false, null.FloatFrom(0), null.String{}, 0.0},
		{"enum", "work", null.Float{}, null.StringFrom("work"), "work"},
		{"nil", nil, null.Float{}, null.String{}, nil},
		{"other", []int{1}, null.Float{}, null.StringFrom("[1]"), "[1]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Sensor{LastValue: null.FloatFrom(99), LastText: null.StringFrom("stale")}
			s.SetValue(tt.value, at)

			assert.Equal(t, tt.wantValue, s.LastValue)
			assert.Equal(t, tt.wantText, s.LastText)
			assert.Equal(t, tt.wantState, s.State())
			assert.Equal(t, null.TimeFrom(at), s.UpdatedAt)
		})
	}
}

func TestSensorValidate(t *testing.T) {
	valid := FromSensor("entry-1", controllerSensor("tempCO"))
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Sensor)
	}{
		{"missing unique id", func(s *Sensor) { s.UniqueID = "" }},
		{"missing key", func(s *Sensor) { s.Key = "" }},
		{"unknown kind", func(s *Sensor) { s.Kind = "boiler" }},
		{"mixer without number", func(s *Sensor) { s.Kind = econet.KindMixer }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid
			tt.mutate(&s)
			assert.ErrorIs(t, s.Validate(), ErrInvalidSensor)
		})
	}
}

// =============================================================================
// SQLite repository
// =============================================================================

type RepositoryTest struct {
	suite.Suite
	repo *SQLiteRepository
	ctx  context.Context
}

func (s *RepositoryTest) SetupTest() {
	s.ctx = context.Background()
	s.repo = NewSQLiteRepository(openMigratedDB(s.T()).DB)
}

func (s *RepositoryTest) record(key string) Sensor {
	return FromSensor("entry-1", controllerSensor(key))
}

func (s *RepositoryTest) TestUpsertAndGet() {
	rec := s.record("tempCO")
	s.Require().NoError(s.repo.Upsert(s.ctx, &rec))
	s.False(rec.CreatedAt.IsZero(), "Upsert fills CreatedAt")

	got, err := s.repo.GetByID(s.ctx, "abc123-tempCO")
	s.Require().NoError(err)
	s.Equal("tempCO", got.Key)
	s.Equal(econet.KindController, got.Kind)
	s.Equal(econet.UnitCelsius, got.Unit)
	s.False(got.LastValue.Valid)
	s.False(got.UpdatedAt.Valid)
}

func (s *RepositoryTest) TestGetMissing() {
	_, err := s.repo.GetByID(s.ctx, "nope")
	s.ErrorIs(err, ErrSensorNotFound)
}

func (s *RepositoryTest) TestUpsertRejectsInvalid() {
	rec := s.record("tempCO")
	rec.UniqueID = ""
	s.ErrorIs(s.repo.Upsert(s.ctx, &rec), ErrInvalidSensor)
}

func (s *RepositoryTest) TestUpsertKeepsValueWhenNoneGiven() {
	rec := s.record("tempCO")
	s.Require().NoError(s.repo.Upsert(s.ctx, &rec))

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.Require().NoError(s.repo.UpdateValue(s.ctx, rec.UniqueID, null.FloatFrom(61.2), null.String{}, at))

	refreshed := s.record("tempCO")
	refreshed.Icon = "mdi:fire"
	s.Require().NoError(s.repo.Upsert(s.ctx, &refreshed))

	got, err := s.repo.GetByID(s.ctx, rec.UniqueID)
	s.Require().NoError(err)
	s.Equal("mdi:fire", got.Icon)
	s.Equal(null.FloatFrom(61.2), got.LastValue)
	s.True(got.UpdatedAt.Time.Equal(at))
}

func (s *RepositoryTest) TestUpdateValue() {
	rec := s.record("mode")
	s.Require().NoError(s.repo.Upsert(s.ctx, &rec))

	at := time.Now().UTC()
	s.Require().NoError(s.repo.UpdateValue(s.ctx, rec.UniqueID, null.Float{}, null.StringFrom("work"), at))

	got, err := s.repo.GetByID(s.ctx, rec.UniqueID)
	s.Require().NoError(err)
	s.Equal("work", got.State())
	s.True(got.UpdatedAt.Time.Equal(at))

	s.ErrorIs(s.repo.UpdateValue(s.ctx, "nope", null.Float{}, null.String{}, at), ErrSensorNotFound)
}

func (s *RepositoryTest) TestListOrderAndKind() {
	mixer := FromSensor("entry-1", econet.NewMixerSensor(econet.BuildDescriptor("mixerTemp1", nil), testEntry(), 1))
	lambda := FromSensor("entry-1", econet.NewLambdaSensor(econet.BuildDescriptor("lambdaLevel", econet.DivideBy(10)), testEntry()))
	co := s.record("tempCO")
	cwu := s.record("tempCWU")

	for _, rec := range []*Sensor{&lambda, &mixer, &cwu, &co} {
		s.Require().NoError(s.repo.Upsert(s.ctx, rec))
	}

	all, err := s.repo.List(s.ctx)
	s.Require().NoError(err)
	s.Len(all, 4)

	byKind, err := s.repo.ListByKind(s.ctx, econet.KindMixer)
	s.Require().NoError(err)
	s.Require().Len(byKind, 1)
	s.Equal("mixerTemp1", byKind[0].Key)
	s.Equal(1, byKind[0].SubIndex)
}

func (s *RepositoryTest) TestDelete() {
	rec := s.record("tempCO")
	s.Require().NoError(s.repo.Upsert(s.ctx, &rec))

	s.Require().NoError(s.repo.Delete(s.ctx, rec.UniqueID))
	s.ErrorIs(s.repo.Delete(s.ctx, rec.UniqueID), ErrSensorNotFound)
}

func TestSQLiteRepository(t *testing.T) {
	suite.Run(t, new(RepositoryTest))
}
