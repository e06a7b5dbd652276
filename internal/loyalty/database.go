package loyalty

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.etcd.io/bbolt"
)

const (
	profileBucketName  = "profiles"
	activityBucketName = "activities"
)

// DB defines the interface for database operations
type DB interface {
	// SaveProfile saves a profile to the database
	SaveProfile(profile *Profile) error

	// GetProfile retrieves a profile by ID
	GetProfile(id string) (*Profile, error)

	// SaveActivity appends an activity record
	SaveActivity(activity *Activity) error

	// ListActivities returns all activities for a user, newest first
	ListActivities(userID string) ([]*Activity, error)

	// Close closes the database connection
	Close() error
}

// BoltDB implements the DB interface using BoltDB
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB creates a new BoltDB instance
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(profileBucketName)); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(activityBucketName)); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

// SaveProfile saves a profile to the database
func (b *BoltDB) SaveProfile(profile *Profile) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(profileBucketName))
		data, err := json.Marshal(profile)
		if err != nil {
			return fmt.Errorf("marshaling profile: %w", err)
		}
		return bucket.Put([]byte(profile.ID), data)
	})
}

// GetProfile retrieves a profile by ID
func (b *BoltDB) GetProfile(id string) (*Profile, error) {
	var profile *Profile
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(profileBucketName))
		data := bucket.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%s: %w", id, ErrProfileNotFound)
		}
		return json.Unmarshal(data, &profile)
	})
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// SaveActivity appends an activity record
func (b *BoltDB) SaveActivity(activity *Activity) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(activityBucketName))
		data, err := json.Marshal(activity)
		if err != nil {
			return fmt.Errorf("marshaling activity: %w", err)
		}
		return bucket.Put([]byte(activity.ID), data)
	})
}

// ListActivities returns all activities for a user, newest first
func (b *BoltDB) ListActivities(userID string) ([]*Activity, error) {
	activities := make([]*Activity, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(activityBucketName))
		return bucket.ForEach(func(k, v []byte) error {
			var activity Activity
			if err := json.Unmarshal(v, &activity); err != nil {
				return fmt.Errorf("unmarshaling activity: %w", err)
			}
			if activity.UserID == userID {
				activities = append(activities, &activity)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(activities, func(i, j int) bool {
		return activities[i].CreatedAt.After(activities[j].CreatedAt)
	})
	return activities, nil
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}
