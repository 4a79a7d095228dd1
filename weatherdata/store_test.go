package weatherdata

import (
	"testing"
	"time"

	"weather-dashboard-backend/models"
	"weather-dashboard-backend/testutil"

	"gorm.io/gorm"
)

func newTestStore(t *testing.T) (*Store, *gorm.DB) {
	t.Helper()
	db := testutil.OpenDB(t)
	return NewStore(db), db
}

func seedCity(t *testing.T, db *gorm.DB, providerID int) *models.City {
	t.Helper()
	city := models.City{OpenWeatherId: providerID, Name: "Warszawa", Country: "PL"}
	if err := db.Create(&city).Error; err != nil {
		t.Fatalf("seeding city: %v", err)
	}
	return &city
}

func TestStore_AppendAndLatest(t *testing.T) {
	store, db := newTestStore(t)
	city := seedCity(t, db, 756135)

	obs := makeObs(756135, "Warszawa")
	obs.Condition = "Clouds"
	obs.Icon = "04d"
	if err := store.Append(city.Id, obs); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	sample, ok, err := store.Latest(city.Id)
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if !ok {
		t.Fatal("Latest() found no sample")
	}
	if sample.Temperature != obs.Temperature || sample.Condition != "Clouds" || sample.Icon != "04d" {
		t.Errorf("sample = %+v", sample)
	}
	if len(sample.Payload) == 0 {
		t.Error("raw payload not stored")
	}
}

func TestStore_LatestFresh(t *testing.T) {
	store, db := newTestStore(t)
	city := seedCity(t, db, 756135)

	if err := store.Append(city.Id, makeObs(756135, "Warszawa")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	if _, ok, err := store.LatestFresh(city.Id, 15*time.Minute); err != nil || !ok {
		t.Fatalf("fresh sample not served: ok=%v err=%v", ok, err)
	}

	// Age the sample past the freshness window.
	aged := time.Now().Add(-20 * time.Minute)
	if err := db.Model(&models.WeatherSample{}).Where("city_id = ?", city.Id).Update("created_at", aged).Error; err != nil {
		t.Fatalf("aging sample: %v", err)
	}

	if _, ok, err := store.LatestFresh(city.Id, 15*time.Minute); err != nil || ok {
		t.Fatalf("stale sample served: ok=%v err=%v", ok, err)
	}
	if _, ok, err := store.Latest(city.Id); err != nil || !ok {
		t.Fatalf("Latest() must ignore age: ok=%v err=%v", ok, err)
	}
}

func TestStore_LatestFresh_NoSamples(t *testing.T) {
	store, db := newTestStore(t)
	city := seedCity(t, db, 756135)

	if _, ok, err := store.LatestFresh(city.Id, 15*time.Minute); err != nil || ok {
		t.Fatalf("empty store: ok=%v err=%v", ok, err)
	}
}

func TestStore_HistoryOrderingAndProjection(t *testing.T) {
	store, db := newTestStore(t)
	city := seedCity(t, db, 756135)

	base := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	for _, offset := range []time.Duration{2 * time.Hour, 0, time.Hour} {
		obs := makeObs(756135, "Warszawa")
		obs.MeasuredAt = base.Add(offset)
		obs.Temperature = float64(offset / time.Hour)
		if err := store.Append(city.Id, obs); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	points, err := store.History(city.Id)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(points) != 3 {
		t.Fatalf("len(points) = %d, want 3", len(points))
	}
	for i := 1; i < len(points); i++ {
		if points[i].Timestamp < points[i-1].Timestamp {
			t.Fatalf("points not ordered ascending: %v", points)
		}
	}
	if points[0].Timestamp != base.UnixMilli() {
		t.Errorf("Timestamp = %d, want %d", points[0].Timestamp, base.UnixMilli())
	}
	if points[0].Date != "2026-01-15 12:00:00" {
		t.Errorf("Date = %q", points[0].Date)
	}
}

func TestStore_DeleteForCity(t *testing.T) {
	store, db := newTestStore(t)
	keep := seedCity(t, db, 756135)
	drop := models.City{OpenWeatherId: 3094802, Name: "Kraków", Country: "PL"}
	if err := db.Create(&drop).Error; err != nil {
		t.Fatalf("seeding city: %v", err)
	}

	if err := store.Append(keep.Id, makeObs(756135, "Warszawa")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := store.Append(drop.Id, makeObs(3094802, "Kraków")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	if err := store.DeleteForCity(drop.Id); err != nil {
		t.Fatalf("DeleteForCity() error = %v", err)
	}

	if _, ok, _ := store.Latest(drop.Id); ok {
		t.Error("samples for deleted city still present")
	}
	if _, ok, _ := store.Latest(keep.Id); !ok {
		t.Error("samples for other city were removed")
	}
}
