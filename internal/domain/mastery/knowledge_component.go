package mastery

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// KnowledgeComponent is an atomic curriculum skill. Config is an instructor
// editable blob; BKT overrides live under the "bkt" key.
type KnowledgeComponent struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Key       string         `gorm:"not null;uniqueIndex" json:"key"`
	Name      string         `json:"name"`
	Config    datatypes.JSON `gorm:"column:config" json:"config,omitempty"`
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
}

func (KnowledgeComponent) TableName() string { return "knowledge_component" }

func (k *KnowledgeComponent) BeforeCreate(tx *gorm.DB) error {
	if k.ID == uuid.Nil {
		k.ID = uuid.New()
	}
	return nil
}

type kcConfig struct {
	Bkt *ParameterOverrides `json:"bkt,omitempty"`
}

// ParameterOverrides decodes the "bkt" section of Config. It does not
// validate; callers decide how to treat out-of-range values.
func (k *KnowledgeComponent) ParameterOverrides() (*ParameterOverrides, error) {
	if k == nil || len(k.Config) == 0 || string(k.Config) == "null" {
		return nil, nil
	}
	var cfg kcConfig
	if err := json.Unmarshal(k.Config, &cfg); err != nil {
		return nil, err
	}
	return cfg.Bkt, nil
}

// WithParameterOverrides returns Config with the "bkt" section replaced and
// every other key preserved.
func (k *KnowledgeComponent) WithParameterOverrides(o *ParameterOverrides) (datatypes.JSON, error) {
	raw := map[string]json.RawMessage{}
	if k != nil && len(k.Config) > 0 && string(k.Config) != "null" {
		if err := json.Unmarshal(k.Config, &raw); err != nil {
			return nil, err
		}
	}
	if o.IsEmpty() {
		delete(raw, "bkt")
	} else {
		b, err := json.Marshal(o)
		if err != nil {
			return nil, err
		}
		raw["bkt"] = b
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}
