package embedcache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// cacheKey identifies one embedding by model, task type and a hash of the text.
type cacheKey struct {
	Model       string
	TaskType    string
	ContentHash string
}

func newCacheKey(modelName, taskType, text string) cacheKey {
	modelName = strings.TrimSpace(modelName)
	if modelName == "" {
		modelName = "unknown"
	}
	hash := sha256.Sum256([]byte(text))
	return cacheKey{Model: modelName, TaskType: taskType, ContentHash: hex.EncodeToString(hash[:])}
}

func (k cacheKey) String() string {
	return "embed:" + k.Model + ":" + k.TaskType + ":" + k.ContentHash
}

func cloneEmbedding(values []float32) []float32 {
	if len(values) == 0 {
		return nil
	}
	clone := make([]float32, len(values))
	copy(clone, values)
	return clone
}
