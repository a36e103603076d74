package model

import (
	"encoding/json"
	"fmt"
	"os"
)

// Metadata mirrors the document written next to the weights at training
// time. Only the fields the serving side cares about are decoded.
type Metadata struct {
	ModelVersion string             `json:"modelVersion"`
	TrainedDate  string             `json:"trainedDate"`
	NumFeatures  int                `json:"numFeatures"`
	Architecture string             `json:"architecture"`
	TrainingSize int                `json:"trainingSize"`
	TestSize     int                `json:"testSize"`
	Performance  map[string]float64 `json:"performance"`
}

// LoadMetadata reads a metadata document. A missing file is an error; the
// caller decides whether metadata is required.
func LoadMetadata(path string) (Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("model: read metadata: %w", err)
	}
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return Metadata{}, fmt.Errorf("model: decode metadata: %w", err)
	}
	return m, nil
}
