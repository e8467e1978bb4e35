package store

import "testing"

func TestInsertAndPromoteModel(t *testing.T) {
	s := testStore(t)

	v1, err := s.InsertModelVersion(ModelNaiveBayes, []byte("artifact-v1"), 100, 0.82)
	if err != nil {
		t.Fatalf("InsertModelVersion(v1) error: %v", err)
	}
	v2, err := s.InsertModelVersion(ModelNaiveBayes, []byte("artifact-v2"), 150, 0.88)
	if err != nil {
		t.Fatalf("InsertModelVersion(v2) error: %v", err)
	}

	if err := s.PromoteModel(v1.UUID); err != nil {
		t.Fatalf("PromoteModel(v1) error: %v", err)
	}
	live, err := s.GetLiveModel(ModelNaiveBayes)
	if err != nil {
		t.Fatalf("GetLiveModel() error: %v", err)
	}
	if live == nil || live.UUID != v1.UUID {
		t.Fatalf("GetLiveModel() = %+v, want v1", live)
	}

	if err := s.PromoteModel(v2.UUID); err != nil {
		t.Fatalf("PromoteModel(v2) error: %v", err)
	}
	live, err = s.GetLiveModel(ModelNaiveBayes)
	if err != nil {
		t.Fatalf("GetLiveModel() error: %v", err)
	}
	if live == nil || live.UUID != v2.UUID {
		t.Fatalf("GetLiveModel() = %+v, want v2 (promotion should demote v1)", live)
	}

	versions, err := s.ListModelVersions(ModelNaiveBayes)
	if err != nil {
		t.Fatalf("ListModelVersions() error: %v", err)
	}
	if len(versions) != 2 {
		t.Fatalf("ListModelVersions() returned %d rows, want 2", len(versions))
	}
}

func TestPromoteMissingModel(t *testing.T) {
	s := testStore(t)

	if err := s.PromoteModel("does-not-exist"); err == nil {
		t.Error("PromoteModel(missing) should return an error")
	}
}

func TestGetLiveModelNoneYet(t *testing.T) {
	s := testStore(t)

	live, err := s.GetLiveModel(ModelRandomForest)
	if err != nil {
		t.Fatalf("GetLiveModel() error: %v", err)
	}
	if live != nil {
		t.Errorf("GetLiveModel() = %+v, want nil before any promotion", live)
	}
}
