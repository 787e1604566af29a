package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// LinkMargin is the slack added to the sum of two body radii when linking them.
const LinkMargin = 1.0

// NoWheel marks an absent wheel designation.
const NoWheel = -1

type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Body is the state one circular element of a vehicle starts its next
// episode from. After an evaluation it holds where the body came to rest.
type Body struct {
	Mass            float64 `json:"mass"`
	Moment          float64 `json:"moment"`
	Position        Vec2    `json:"position"`
	Velocity        Vec2    `json:"velocity"`
	Angle           float64 `json:"angle"`
	AngularVelocity float64 `json:"angular_velocity"`
	Friction        float64 `json:"friction"`
	Radius          float64 `json:"radius"`
}

// Link is a fixed-distance joint between two bodies of the same vehicle.
type Link struct {
	A        int     `json:"a"`
	B        int     `json:"b"`
	Distance float64 `json:"distance"`
}

// Vehicle is an articulated chain of bodies. Bodies and links are stored by
// value so copying the slices copies the whole vehicle.
type Vehicle struct {
	VersionedRecord
	ID         string  `json:"id"`
	Bodies     []Body  `json:"bodies"`
	Links      []Link  `json:"links"`
	FrontWheel int     `json:"front_wheel"`
	RearWheel  int     `json:"rear_wheel"`
	FrontSpeed float64 `json:"front_speed"`
	RearSpeed  float64 `json:"rear_speed"`
	Generation int     `json:"generation"`
}

func (v Vehicle) HasRearWheel() bool {
	return v.RearWheel >= 0 && v.RearWheel < len(v.Bodies)
}

// Ground is the static flat surface every episode runs against.
type Ground struct {
	Height   float64 `json:"height"`
	Width    float64 `json:"width"`
	Friction float64 `json:"friction"`
}

type LineageRecord struct {
	VersionedRecord
	VehicleID  string  `json:"vehicle_id"`
	ParentID   string  `json:"parent_id"`
	Generation int     `json:"generation"`
	Operation  string  `json:"operation"`
	BodyCount  int     `json:"body_count"`
	FrontSpeed float64 `json:"front_speed"`
	RearSpeed  float64 `json:"rear_speed"`
}

type GenerationDiagnostics struct {
	Generation     int     `json:"generation"`
	PopulationSize int     `json:"population_size"`
	Evaluations    int     `json:"evaluations"`
	Survivors      int     `json:"survivors"`
	BestFitness    float64 `json:"best_fitness"`
	MeanFitness    float64 `json:"mean_fitness"`
	MinFitness     float64 `json:"min_fitness"`
	BestVehicleID  string  `json:"best_vehicle_id"`
}

type TopVehicleRecord struct {
	VersionedRecord
	Rank    int     `json:"rank"`
	Fitness float64 `json:"fitness"`
	Vehicle Vehicle `json:"vehicle"`
}
