package station

import (
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestObserveCreatesStation(t *testing.T) {
	reg := NewRegistry("")

	reg.Observe(Observation{StationID: "S109", Name: "Ang Mo Kio Avenue 5", DataType: "air-temperature", HasReading: true})

	st, ok := reg.Get("S109")
	if !ok {
		t.Fatal("expected station S109 to exist")
	}
	if st.Name != "Ang Mo Kio Avenue 5" {
		t.Errorf("unexpected name %q", st.Name)
	}
	if st.ReadingsCount != 1 {
		t.Errorf("expected readings count 1, got %d", st.ReadingsCount)
	}
	if st.ReliabilityScore != 1.0 {
		t.Errorf("expected default reliability 1.0, got %f", st.ReliabilityScore)
	}
	if st.FirstSeen.IsZero() || st.LastSeen.IsZero() {
		t.Error("expected first/last seen timestamps to be set")
	}
	if !st.HasDataType("air-temperature") {
		t.Error("expected data type air-temperature")
	}
}

func TestObserveGrowsDataTypesMonotonically(t *testing.T) {
	reg := NewRegistry("")

	reg.Observe(Observation{StationID: "S50", DataType: "rainfall", HasReading: true})
	reg.Observe(Observation{StationID: "S50", DataType: "air-temperature", HasReading: true})
	reg.Observe(Observation{StationID: "S50", DataType: "rainfall", HasReading: true})

	st, _ := reg.Get("S50")
	if len(st.DataTypes) != 2 {
		t.Fatalf("expected 2 data types, got %v", st.DataTypes)
	}
	// Sorted set, no duplicates.
	if st.DataTypes[0] != "air-temperature" || st.DataTypes[1] != "rainfall" {
		t.Errorf("unexpected data types %v", st.DataTypes)
	}
	if st.ReadingsCount != 3 {
		t.Errorf("expected readings count 3, got %d", st.ReadingsCount)
	}
}

func TestMetadataOnlySightingDoesNotCountReadings(t *testing.T) {
	reg := NewRegistry("")

	reg.Observe(Observation{StationID: "S121", Name: "Old Choa Chu Kang Road", DataType: "air-temperature",
		Coords: &Coordinates{Lat: 1.3746, Lng: 103.7219, Source: SourceKnown}})

	st, ok := reg.Get("S121")
	if !ok {
		t.Fatal("expected station S121 to exist")
	}
	if st.ReadingsCount != 0 {
		t.Errorf("metadata-only sighting counted as reading: %d", st.ReadingsCount)
	}
	if st.Name == "" || st.Coordinates == nil || !st.HasDataType("air-temperature") {
		t.Errorf("metadata-only sighting lost detail: %+v", st)
	}
}

func TestKnownCoordinatesNeverRegress(t *testing.T) {
	reg := NewRegistry("")

	known := &Coordinates{Lat: 1.3764, Lng: 103.8492, Name: "Ang Mo Kio Avenue 5", Source: SourceKnown}
	estimate := &Coordinates{Lat: 1.30, Lng: 103.80, Name: "Estimated (central)", Source: SourceEstimated}

	reg.Observe(Observation{StationID: "S109", DataType: "air-temperature", Coords: known})
	reg.Observe(Observation{StationID: "S109", DataType: "air-temperature", Coords: estimate})

	st, _ := reg.Get("S109")
	if st.Coordinates == nil || st.Coordinates.Source != SourceKnown {
		t.Fatalf("known coordinates regressed: %+v", st.Coordinates)
	}
	if st.Coordinates.Lat != 1.3764 {
		t.Errorf("known position overwritten: %+v", st.Coordinates)
	}
}

func TestEstimateUpgradesToKnown(t *testing.T) {
	reg := NewRegistry("")

	estimate := &Coordinates{Lat: 1.30, Lng: 103.80, Name: "Estimated (central)", Source: SourceEstimated}
	known := &Coordinates{Lat: 1.3764, Lng: 103.8492, Name: "Ang Mo Kio Avenue 5", Source: SourceKnown}

	reg.Observe(Observation{StationID: "S109", DataType: "air-temperature", Coords: estimate})
	reg.Observe(Observation{StationID: "S109", DataType: "air-temperature", Coords: known})

	st, _ := reg.Get("S109")
	if st.Coordinates == nil || st.Coordinates.Source != SourceKnown {
		t.Fatalf("expected upgrade to known coordinates, got %+v", st.Coordinates)
	}
}

func TestEnsureCoordinates(t *testing.T) {
	reg := NewRegistry("")
	resolver := NewResolver()

	reg.Observe(Observation{StationID: "S999", DataType: "rainfall"})
	reg.Observe(Observation{StationID: "S109", DataType: "air-temperature",
		Coords: &Coordinates{Lat: 1.3764, Lng: 103.8492, Source: SourceKnown}})

	filled := reg.EnsureCoordinates(resolver.Resolve)
	if filled != 1 {
		t.Errorf("expected 1 station filled, got %d", filled)
	}

	st, _ := reg.Get("S999")
	if st.Coordinates == nil || st.Coordinates.Source != SourceEstimated {
		t.Errorf("expected estimated coordinates for S999, got %+v", st.Coordinates)
	}
}

func TestSetReliabilityClamps(t *testing.T) {
	reg := NewRegistry("")
	reg.Observe(Observation{StationID: "S107", DataType: "wind-speed"})

	reg.SetReliability("S107", 1.7)
	if st, _ := reg.Get("S107"); st.ReliabilityScore != 1.0 {
		t.Errorf("expected clamp to 1.0, got %f", st.ReliabilityScore)
	}

	reg.SetReliability("S107", -0.2)
	if st, _ := reg.Get("S107"); st.ReliabilityScore != 0 {
		t.Errorf("expected clamp to 0, got %f", st.ReliabilityScore)
	}

	reg.SetReliability("S107", 0.5)
	if st, _ := reg.Get("S107"); st.ReliabilityScore != 0.5 {
		t.Errorf("expected 0.5, got %f", st.ReliabilityScore)
	}
}

func TestByDataType(t *testing.T) {
	reg := NewRegistry("")
	reg.Observe(Observation{StationID: "S50", DataType: "rainfall"})
	reg.Observe(Observation{StationID: "S77", DataType: "rainfall"})
	reg.Observe(Observation{StationID: "S109", DataType: "air-temperature"})

	got := reg.ByDataType("rainfall")
	if len(got) != 2 {
		t.Fatalf("expected 2 rainfall stations, got %d", len(got))
	}
	// Sorted by id.
	if got[0].ID != "S50" || got[1].ID != "S77" {
		t.Errorf("unexpected ordering %v, %v", got[0].ID, got[1].ID)
	}

	if got := reg.ByDataType("humidity"); len(got) != 0 {
		t.Errorf("expected no humidity stations, got %d", len(got))
	}
}

func TestGetReturnsCopies(t *testing.T) {
	reg := NewRegistry("")
	reg.Observe(Observation{StationID: "S50", DataType: "rainfall",
		Coords: &Coordinates{Lat: 1.3337, Lng: 103.7768, Source: SourceKnown}})

	st, _ := reg.Get("S50")
	st.Coordinates.Lat = 99
	st.DataTypes[0] = "tampered"

	again, _ := reg.Get("S50")
	if again.Coordinates.Lat == 99 || again.DataTypes[0] == "tampered" {
		t.Error("Get must return copies, not shared references")
	}
}

func TestConcurrentObserve(t *testing.T) {
	reg := NewRegistry("")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reg.Observe(Observation{StationID: "S109", DataType: "air-temperature", HasReading: true})
		}()
	}
	wg.Wait()

	st, _ := reg.Get("S109")
	if st.ReadingsCount != 50 {
		t.Errorf("expected readings count 50, got %d", st.ReadingsCount)
	}
	if reg.Len() != 1 {
		t.Errorf("expected a single station, got %d", reg.Len())
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")

	reg := NewRegistry(path)
	reg.Observe(Observation{StationID: "S109", Name: "Ang Mo Kio Avenue 5", DataType: "air-temperature", HasReading: true,
		Coords: &Coordinates{Lat: 1.3764, Lng: 103.8492, Name: "Ang Mo Kio Avenue 5", Source: SourceKnown}})
	reg.Observe(Observation{StationID: "S109", DataType: "relative-humidity", HasReading: true})
	reg.Observe(Observation{StationID: "S999", DataType: "rainfall", HasReading: true})
	reg.SetReliability("S999", 0.4)

	if err := reg.Save(); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	reloaded := NewRegistry(path)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if reloaded.Len() != 2 {
		t.Fatalf("expected 2 stations after reload, got %d", reloaded.Len())
	}

	st, ok := reloaded.Get("S109")
	if !ok {
		t.Fatal("expected S109 after reload")
	}
	if len(st.DataTypes) != 2 || st.ReadingsCount != 2 {
		t.Errorf("lossy round trip: %+v", st)
	}
	if st.Coordinates == nil || st.Coordinates.Source != SourceKnown {
		t.Errorf("coordinates lost in round trip: %+v", st.Coordinates)
	}

	if st, _ := reloaded.Get("S999"); st.ReliabilityScore != 0.4 {
		t.Errorf("reliability lost in round trip: %f", st.ReliabilityScore)
	}
}

func TestLoadMergesIntoLiveRegistry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")

	old := NewRegistry(path)
	old.Observe(Observation{StationID: "S109", DataType: "air-temperature", HasReading: true})
	old.Observe(Observation{StationID: "S109", DataType: "air-temperature", HasReading: true})
	old.Observe(Observation{StationID: "S109", DataType: "air-temperature", HasReading: true})
	if err := old.Save(); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	live := NewRegistry(path)
	live.Observe(Observation{StationID: "S109", DataType: "wind-speed", HasReading: true})
	if err := live.Load(); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	st, _ := live.Get("S109")
	if !st.HasDataType("air-temperature") || !st.HasDataType("wind-speed") {
		t.Errorf("expected union of data types, got %v", st.DataTypes)
	}
	if st.ReadingsCount != 3 {
		t.Errorf("expected max readings count 3, got %d", st.ReadingsCount)
	}
}

func TestLoadMissingFileIsFreshStart(t *testing.T) {
	reg := NewRegistry(filepath.Join(t.TempDir(), "absent.json"))
	if err := reg.Load(); err != nil {
		t.Errorf("missing file should not be an error, got %v", err)
	}
	if reg.Len() != 0 {
		t.Errorf("expected empty registry, got %d", reg.Len())
	}
}

func TestObserveUpdatesLastSeen(t *testing.T) {
	reg := NewRegistry("")
	reg.Observe(Observation{StationID: "S109", DataType: "air-temperature"})
	st1, _ := reg.Get("S109")

	time.Sleep(5 * time.Millisecond)
	reg.Observe(Observation{StationID: "S109", DataType: "air-temperature"})
	st2, _ := reg.Get("S109")

	if !st2.LastSeen.After(st1.LastSeen) {
		t.Error("expected LastSeen to advance")
	}
	if !st2.FirstSeen.Equal(st1.FirstSeen) {
		t.Error("expected FirstSeen to stay fixed")
	}
}
