package rs

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

////////////////
//
// (DB store)
//

// db-backed preference store
type dbStore struct {
	db *gorm.DB

	verbose bool
}

// GetCategories returns the blocked category labels of `userID`.
func (s *dbStore) GetCategories(userID string) ([]string, error) {
	v(s.verbose, "dbStore - fetching category row for user: %s", userID)

	var record CategoryRecord
	result := s.db.Limit(1).Where("user_id = ?", userID).Find(&record)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to fetch category row for user '%s': %w", userID, result.Error)
	}
	if result.RowsAffected == 0 || record.Categories == "" {
		return []string{}, nil
	}

	var categories []string
	if err := json.Unmarshal([]byte(record.Categories), &categories); err != nil {
		// a corrupt row reads as an empty set
		log.Printf("failed to deserialize category row for user '%s': %s", userID, err)
		return []string{}, nil
	}
	return categories, nil
}

// SaveCategories upserts the category row of `userID`.
func (s *dbStore) SaveCategories(userID string, categories []string) error {
	v(s.verbose, "dbStore - upserting category row for user: %s (%d labels)", userID, len(categories))

	bytes, err := json.Marshal(categories)
	if err != nil {
		return fmt.Errorf("failed to serialize categories for user '%s': %w", userID, err)
	}

	record := CategoryRecord{
		UserID:     userID,
		Categories: string(bytes),
		UpdatedAt:  time.Now().UTC(),
	}
	err = s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"categories",
			"updated_at",
		}),
	}).Create(&record).Error
	if err != nil {
		return fmt.Errorf("failed to upsert category row for user '%s': %w", userID, err)
	}
	return nil
}

// ListPhrases returns all phrase rules owned by `userID`.
func (s *dbStore) ListPhrases(userID string) ([]PhraseRule, error) {
	v(s.verbose, "dbStore - listing phrase rows for user: %s", userID)

	var records []PhraseRecord
	err := s.db.Where("user_id = ?", userID).Order("created_at ASC").Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list phrase rows for user '%s': %w", userID, err)
	}

	rules := make([]PhraseRule, 0, len(records))
	for _, record := range records {
		rules = append(rules, record.toRule())
	}
	return rules, nil
}

// InsertPhrase stores a new phrase rule, assigning a store id.
func (s *dbStore) InsertPhrase(rule PhraseRule) (PhraseRule, error) {
	v(s.verbose, "dbStore - inserting phrase row for user: %s (%s)", rule.OwnerID, rule.Phrase)

	// client-generated local ids are replaced by store ids on sync
	rule.ID = uuid.NewString()
	now := time.Now().UTC()
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}
	rule.UpdatedAt = now

	record := recordFromRule(rule)
	if err := s.db.Create(&record).Error; err != nil {
		return PhraseRule{}, fmt.Errorf("failed to insert phrase row for user '%s': %w", rule.OwnerID, err)
	}
	return record.toRule(), nil
}

// DeletePhrase deletes the phrase rule with given `ruleID`.
func (s *dbStore) DeletePhrase(userID, ruleID string) error {
	v(s.verbose, "dbStore - deleting phrase row with id: %s", ruleID)

	result := s.db.Where("user_id = ? AND id = ?", userID, ruleID).Delete(&PhraseRecord{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete phrase row with id '%s': %w", ruleID, result.Error)
	}
	if result.RowsAffected != 1 {
		log.Printf("failed to delete phrase row with id '%s' (number of deleted: %d)", ruleID, result.RowsAffected)
	}
	return nil
}

// ClearPhrases deletes all phrase rules owned by `userID`.
func (s *dbStore) ClearPhrases(userID string) error {
	v(s.verbose, "dbStore - clearing phrase rows for user: %s", userID)

	if err := s.db.Where("user_id = ?", userID).Delete(&PhraseRecord{}).Error; err != nil {
		return fmt.Errorf("failed to clear phrase rows for user '%s': %w", userID, err)
	}
	return nil
}

// LastVisitedAt returns the remote visit timestamp of `userID`, or nil.
func (s *dbStore) LastVisitedAt(userID string) (*time.Time, error) {
	v(s.verbose, "dbStore - fetching visit row for user: %s", userID)

	var record VisitRecord
	result := s.db.Limit(1).Where("user_id = ?", userID).Find(&record)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to fetch visit row for user '%s': %w", userID, result.Error)
	}
	if result.RowsAffected == 0 || record.LastVisitedAt.IsZero() {
		return nil, nil
	}

	at := record.LastVisitedAt
	return &at, nil
}

// TouchVisited upserts the visit row of `userID` to `at`.
func (s *dbStore) TouchVisited(userID string, at time.Time) error {
	v(s.verbose, "dbStore - upserting visit row for user: %s", userID)

	record := VisitRecord{
		UserID:        userID,
		LastVisitedAt: at,
	}
	err := s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"last_visited_at",
		}),
	}).Create(&record).Error
	if err != nil {
		return fmt.Errorf("failed to upsert visit row for user '%s': %w", userID, err)
	}
	return nil
}

// SetVerbose sets the verbosity of the store.
func (s *dbStore) SetVerbose(v bool) {
	s.verbose = v
}

// return a new db store
func newDBStore(filepath string) (*dbStore, error) {
	db, err := gorm.Open(sqlite.Open(filepath), &gorm.Config{
		Logger: logger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			logger.Config{
				SlowThreshold:             slowQueryThresholdSeconds * time.Second,
				LogLevel:                  logger.Warn,
				IgnoreRecordNotFoundError: true,
				ParameterizedQueries:      true,
				Colorful:                  false,
			},
		),
	})
	if err != nil {
		return nil, err
	}

	// migrate the schema
	if err := db.AutoMigrate(&CategoryRecord{}, &PhraseRecord{}, &VisitRecord{}); err != nil {
		log.Printf("failed to migrate db: %s", err)
	}

	return &dbStore{
		db: db,
	}, nil
}
