package model

import (
	"database/sql"
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&RacerInfo{},
	&Track{},
	&Race{},
	&Actor{},
	&ActorState{},
	&LapEvent{},
	&RacerPerformance{},
}

////////////////////////
// SYSTEM MODELS
////////////////////////

// RacerInfo describes who runs this instance
type RacerInfo struct {
	gorm.Model
	GroupName        string `json:"groupName" gorm:"size:127"`
	GroupDescription string `json:"groupDescription" gorm:"size:255"`
	GroupWebsite     string `json:"groupURL" gorm:"size:255"`
}

func (*RacerInfo) TableName() string {
	return "racer_infos"
}

// RacerPerformance is one monitor sample taken while a race runs
type RacerPerformance struct {
	Time                time.Time         `json:"time" gorm:"type:timestamptz;index:idx_perf_time"`
	RaceID              uint              `json:"raceId" gorm:"index:idx_racerperformance_race_id"`
	Race                Race              `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:RaceID;"`
	Frame               uint              `json:"frame"`
	Actors              uint16            `json:"actors"`
	RecorderPending     uint32            `json:"recorderPending"`
	WriteQueueLengths   WriteQueueLengths `json:"writeQueueLengths" gorm:"embedded;embeddedPrefix:writequeue_"`
	LastWriteDurationMs float32           `json:"lastWriteDurationMs"`
}

func (*RacerPerformance) TableName() string {
	return "racer_performances"
}

// WriteQueueLengths is the backlog of each DB write queue
type WriteQueueLengths struct {
	Actors      uint32 `json:"actors"`
	ActorStates uint32 `json:"actorStates"`
	LapEvents   uint32 `json:"lapEvents"`
}

////////////////////////
// RECORDING MODELS
////////////////////////

// Track is a waypoint loop, shared by every race run on it
type Track struct {
	gorm.Model
	Name      string          `json:"name" gorm:"size:127;uniqueIndex"`
	Closed    bool            `json:"closed" gorm:"default:true"`
	Length    float64         `json:"length"`
	CRS       string          `json:"crs" gorm:"size:32"`
	Origin    geom.Point      `json:"origin"`    // projected origin of geo-referenced tracks
	Waypoints geom.LineString `json:"waypoints"` // ground-plane polyline through every waypoint
	Races     []Race
}

func (*Track) TableName() string {
	return "tracks"
}

// GetOrInsert loads the track with the same name, or inserts t.
func (t *Track) GetOrInsert(db *gorm.DB) (created bool, err error) {
	var existing Track
	err = db.Where("name = ?", t.Name).First(&existing).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			err = db.Create(t).Error
			return err == nil, err
		}
		return false, err
	}
	*t = existing
	return false, nil
}

// Race is one recorded session
type Race struct {
	gorm.Model
	Name         string       `json:"raceName" gorm:"size:200"`
	TrackID      uint         `json:"trackId"`
	Track        Track        `gorm:"foreignkey:TrackID"`
	StartTime    time.Time    `json:"raceStart" gorm:"type:timestamptz;index:idx_race_start"`
	EndTime      sql.NullTime `json:"raceEnd" gorm:"type:timestamptz"`
	TargetLaps   int          `json:"targetLaps"`
	FrameRate    float64      `json:"frameRate" gorm:"default:60"`
	Tag          string       `json:"tag" gorm:"size:127"`
	RacerVersion string       `json:"racerVersion" gorm:"size:64"`
	RacerBuild   string       `json:"racerBuild" gorm:"size:64"`

	Actors    []Actor
	LapEvents []LapEvent
}

func (*Race) TableName() string {
	return "races"
}

// Actor is a car taking part in a race.
// Uses composite primary key (RaceID, ObjectID); ObjectID is assigned by the engine.
type Actor struct {
	RaceID   uint      `json:"raceId" gorm:"primaryKey;autoIncrement:false"`
	Race     Race      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:RaceID;"`
	ObjectID uint16    `json:"actorId" gorm:"primaryKey;autoIncrement:false"`
	JoinTime time.Time `json:"joinTime" gorm:"type:timestamptz;NOT NULL;"`
	Name     string    `json:"name" gorm:"size:64"`
	Kind     string    `json:"kind" gorm:"size:16"`
	// Spec holds maxSpeed, reverseLimit, acceleration and turnRate
	Spec datatypes.JSON `json:"spec" gorm:"default:'{}'"`
}

func (*Actor) TableName() string {
	return "actors"
}

// ActorState is one actor at the end of a frame
type ActorState struct {
	ID            uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time          time.Time `json:"time" gorm:"type:timestamptz;"`
	RaceID        uint      `json:"raceId" gorm:"index:idx_actorstate_race_id"`
	Race          Race      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:RaceID;"`
	CaptureFrame  uint      `json:"captureFrame" gorm:"index:idx_actorstate_capture_frame"`
	ActorObjectID uint16    `json:"actorId" gorm:"index:idx_actorstate_actor_id"`
	Actor         Actor     `gorm:"foreignkey:RaceID,ActorObjectID;references:RaceID,ObjectID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`

	Position  geom.Point `json:"position"`  // ground-plane point
	Elevation float64    `json:"elevation"` // Z
	Elapsed   float64    `json:"elapsed"`   // race clock, seconds
	Heading   float64    `json:"heading"`   // radians, 0 = +Y, clockwise
	Speed     float64    `json:"speed"`
	Waypoint  int        `json:"waypoint"`
	Laps      int        `json:"laps"`
}

func (*ActorState) TableName() string {
	return "actor_states"
}

// LapEvent records one completed lap
type LapEvent struct {
	ID            uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time          time.Time `json:"time" gorm:"type:timestamptz;"`
	RaceID        uint      `json:"raceId" gorm:"index:idx_lapevent_race_id"`
	Race          Race      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:RaceID;"`
	CaptureFrame  uint      `json:"captureFrame"`
	ActorObjectID uint16    `json:"actorId" gorm:"index:idx_lapevent_actor_id"`
	Lap           int       `json:"lap"`
	LapTimeMs     float64   `json:"lapTimeMs"`
	TotalTimeMs   float64   `json:"totalTimeMs"`
}

func (*LapEvent) TableName() string {
	return "lap_events"
}
