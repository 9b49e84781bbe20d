package model

// Wire types for the planning API. Optional fields that carry non-zero
// defaults are pointers so an explicit zero survives the trip through JSON.

// CarIn is one vehicle in a placement request. ID falls back to VIN, then
// name, then a synthesized CAR_{n}; drop order defaults to the car's 1-based
// position in the request.
type CarIn struct {
	ID        string   `json:"id,omitempty"`
	VIN       string   `json:"vin,omitempty"`
	Name      string   `json:"name,omitempty"`
	LengthFt  float64  `json:"length_ft"`
	WidthFt   *float64 `json:"width_ft,omitempty"`
	HeightFt  float64  `json:"height_ft"`
	WeightLbs float64  `json:"weight_lbs"`
	DropOrder *int     `json:"drop_order,omitempty"`
}

// SlotIn is one slot in a caller-supplied catalog override. The catalog
// replaces the built-in nine-slot layout wholesale.
type SlotIn struct {
	ID             string             `json:"id"`
	Deck           string             `json:"deck,omitempty"`
	PositionRank   *int               `json:"position_rank,omitempty"`
	MaxLengthFt    float64            `json:"max_length_ft"`
	MaxWidthFt     *float64           `json:"max_width_ft,omitempty"`
	MaxHeightFt    *float64           `json:"max_height_ft,omitempty"`
	HeightMarginFt *float64           `json:"height_margin_ft,omitempty"`
	AdjustmentCost *float64           `json:"adjustment_cost,omitempty"`
	AxleInfluence  map[string]float64 `json:"axle_influence,omitempty"`
}

// RigIn overrides individual rig limits; absent fields keep their defaults.
type RigIn struct {
	MaxHeightFt   *float64           `json:"max_height_ft,omitempty"`
	MaxLengthFt   *float64           `json:"max_length_ft,omitempty"`
	MaxWidthFt    *float64           `json:"max_width_ft,omitempty"`
	AxleLimitsLbs map[string]float64 `json:"axle_limits_lbs,omitempty"`
	EmptyAxleLbs  map[string]float64 `json:"empty_axle_lbs,omitempty"`
}

type PlacementRequest struct {
	Cars     []CarIn  `json:"cars"`
	Rig      *RigIn   `json:"rig,omitempty"`
	RigID    string   `json:"rig_id,omitempty"`
	Slots    []SlotIn `json:"slots,omitempty"`
	MaxIters *int     `json:"max_iters,omitempty"`
	Seed     *int64   `json:"seed,omitempty"`
}

type Assignment struct {
	CarID  string `json:"car_id"`
	SlotID string `json:"slot_id"`
}

type Scores struct {
	Fitness       float64 `json:"fitness"`
	UnloadMoves   float64 `json:"unload_moves"`
	AxleMaxPct    float64 `json:"axle_max_pct"`
	HeightPenalty float64 `json:"height_penalty"`
	AdjCost       float64 `json:"adj_cost"`
}

type PlacementResponse struct {
	Assignments []Assignment `json:"assignments"`
	Scores      Scores       `json:"scores"`
	Warnings    []string     `json:"warnings"`
	Feasible    bool         `json:"feasible"`
}

// Deck-profile plan: the engine result projected onto physical deck heights
// with per-slot offsets and forward/reversed orientation.

type OrientationRulesIn struct {
	AllowReversed         *bool    `json:"allow_reversed,omitempty"`
	TopOnly               *bool    `json:"top_only,omitempty"`
	MinHeightForBenefitFt *float64 `json:"min_height_for_benefit_ft,omitempty"`
	ReverseBonusFt        *float64 `json:"reverse_bonus_ft,omitempty"`
}

type OrientationRules struct {
	AllowReversed         bool    `json:"allow_reversed"`
	TopOnly               bool    `json:"top_only"`
	MinHeightForBenefitFt float64 `json:"min_height_for_benefit_ft"`
	ReverseBonusFt        float64 `json:"reverse_bonus_ft"`
}

type PlacementPlanRequest struct {
	Cars             []CarIn             `json:"cars"`
	DeckHeightFt     *float64            `json:"deck_height_ft,omitempty"`
	SlotOffsetsFt    map[string]float64  `json:"slot_offsets_ft,omitempty"`
	OrientationRules *OrientationRulesIn `json:"orientation_rules,omitempty"`
	MaxIters         *int                `json:"max_iters,omitempty"`
	Seed             *int64              `json:"seed,omitempty"`
}

type PlannedAssignment struct {
	CarID       string  `json:"car_id"`
	SlotID      string  `json:"slot_id"`
	Orientation string  `json:"orientation"`
	LoadedFt    float64 `json:"loaded_ft"`
	OffsetFt    float64 `json:"offset_ft"`
}

// DeckHeights reports the peak loaded height per deck. UpperDeckOffsetFt is
// null when per-slot offsets apply instead of a single deck-wide one.
type DeckHeights struct {
	LowerLoadedFt     float64  `json:"lower_loaded_ft"`
	UpperLoadedFt     float64  `json:"upper_loaded_ft"`
	UpperDeckOffsetFt *float64 `json:"upper_deck_offset_ft"`
}

type DeckPeak struct {
	SlotID   string  `json:"slot_id"`
	LoadedFt float64 `json:"loaded_ft"`
}

type MaxLoaded struct {
	Lower *DeckPeak `json:"lower"`
	Upper *DeckPeak `json:"upper"`
}

type DeckProfile struct {
	DeckHeightFt float64 `json:"deck_height_ft"`
}

type PlacementPlanResponse struct {
	Assignments          []PlannedAssignment `json:"assignments"`
	Scores               Scores              `json:"scores"`
	Warnings             []string            `json:"warnings"`
	Feasible             bool                `json:"feasible"`
	HeightsByDeck        DeckHeights         `json:"heights_by_deck"`
	MaxLoaded            MaxLoaded           `json:"max_loaded"`
	DeckProfileUsed      DeckProfile         `json:"deck_profile_used"`
	SlotOffsetsUsed      map[string]float64  `json:"slot_offsets_used"`
	OrientationRulesUsed OrientationRules    `json:"orientation_rules_used"`
}

// Load check and tallest-first arrangement. HaulCar is the loose car shape
// these endpoints accept; missing dimensions contribute zero.

type HaulCar struct {
	Make      string  `json:"make,omitempty"`
	Model     string  `json:"model,omitempty"`
	Year      int     `json:"year,omitempty"`
	HeightFt  float64 `json:"height_ft,omitempty"`
	WeightLbs float64 `json:"weight_lbs,omitempty"`
}

type LoadCheckRequest struct {
	TruckWeightLbs   float64   `json:"truck_weight_lbs"`
	TrailerWeightLbs float64   `json:"trailer_weight_lbs"`
	TrailerHeightFt  float64   `json:"trailer_height_ft"`
	Cars             []HaulCar `json:"cars"`
}

type LoadCheckResponse struct {
	TruckWeightLbs     float64  `json:"truck_weight_lbs"`
	TrailerWeightLbs   float64  `json:"trailer_weight_lbs"`
	TrailerHeightFt    float64  `json:"trailer_height_ft"`
	TotalWeightLbs     float64  `json:"total_weight_lbs"`
	NaiveTotalHeightFt float64  `json:"naive_total_height_ft"`
	TotalHeightFt      float64  `json:"total_height_ft"`
	Warnings           []string `json:"warnings"`
}

type ArrangementRequest struct {
	Cars             []HaulCar `json:"cars"`
	TrailerHeightFt  *float64  `json:"trailer_height_ft,omitempty"`
	MaxHeightFt      *float64  `json:"max_height_ft,omitempty"`
	TruckWeightLbs   *float64  `json:"truck_weight_lbs,omitempty"`
	TrailerWeightLbs *float64  `json:"trailer_weight_lbs,omitempty"`
	MaxWeightLbs     *float64  `json:"max_weight_lbs,omitempty"`
}

type ArrangedSlot struct {
	Car            HaulCar `json:"car"`
	LoadedHeightFt float64 `json:"loaded_height_ft"`
	Deck           string  `json:"deck"`
}

type ArrangementResponse struct {
	Layout              map[string]*ArrangedSlot `json:"layout"`
	HeightsByDeck       DeckHeights              `json:"heights_by_deck"`
	ComputedMaxHeightFt float64                  `json:"computed_max_height_ft"`
	ArrangedCars        []HaulCar                `json:"arranged_cars"`
	Warnings            []string                 `json:"warnings"`
}

// Route planning.

type RoutePlanCarIn struct {
	Make      string   `json:"make"`
	Model     string   `json:"model"`
	Year      int      `json:"year"`
	HeightFt  *float64 `json:"height_ft,omitempty"`
	WeightLbs *float64 `json:"weight_lbs,omitempty"`
}

type RoutePlanRequest struct {
	Origin      string           `json:"origin"`
	Destination string           `json:"destination"`
	Cars        []RoutePlanCarIn `json:"cars"`

	TruckWeightLbs   *float64 `json:"truck_weight_lbs,omitempty"`
	TrailerWeightLbs *float64 `json:"trailer_weight_lbs,omitempty"`
	TrailerHeightFt  *float64 `json:"trailer_height_ft,omitempty"`
	TruckLengthFt    *float64 `json:"truck_length_ft,omitempty"`
	TruckWidthFt     *float64 `json:"truck_width_ft,omitempty"`
	WeightPerAxleLbs *float64 `json:"weight_per_axle_lbs,omitempty"`

	ShippedHazardousGoods string `json:"shipped_hazardous_goods,omitempty"`
	TunnelCategory        string `json:"tunnel_category,omitempty"`
}

type Geocoding struct {
	OriginInput      string     `json:"origin_input"`
	DestinationInput string     `json:"destination_input"`
	OriginCoord      [2]float64 `json:"origin_coord"`
	DestinationCoord [2]float64 `json:"destination_coord"`
	OriginLabel      string     `json:"origin_label"`
	DestinationLabel string     `json:"destination_label"`
}

type TruckProfile struct {
	TruckWeightLbs   float64 `json:"truck_weight_lbs"`
	TrailerWeightLbs float64 `json:"trailer_weight_lbs"`
	TrailerHeightFt  float64 `json:"trailer_height_ft"`
	TruckLengthFt    float64 `json:"truck_length_ft"`
	TruckWidthFt     float64 `json:"truck_width_ft"`
	WeightPerAxleLbs float64 `json:"weight_per_axle_lbs"`
}

type LoadTotals struct {
	TotalHeightFt  float64 `json:"total_height_ft"`
	TotalHeightM   float64 `json:"total_height_m"`
	TotalWeightLbs float64 `json:"total_weight_lbs"`
	TotalWeightKg  float64 `json:"total_weight_kg"`
}

type LayoutCarOut struct {
	Make      string  `json:"make"`
	Model     string  `json:"model"`
	Year      int     `json:"year"`
	HeightFt  float64 `json:"height_ft"`
	WeightLbs float64 `json:"weight_lbs"`
}

type LayoutSlot struct {
	Car            LayoutCarOut `json:"car"`
	LoadedHeightFt float64      `json:"loaded_height_ft"`
}

type LayoutSuggestion struct {
	Layout        map[string]*LayoutSlot `json:"layout"`
	HeightsByDeck DeckHeights            `json:"heights_by_deck"`
}

// Vehicle specs lookup.

type VehicleSpecsRequest struct {
	Year     int    `json:"year"`
	Make     string `json:"make"`
	Model    string `json:"model"`
	Trim     string `json:"trim,omitempty"`
	Strategy string `json:"strategy,omitempty"` // first, median, max
}

type VehicleSpecs struct {
	HeightFt  *float64 `json:"height_ft"`
	LengthFt  *float64 `json:"length_ft"`
	WeightLbs *float64 `json:"weight_lbs"`
	Source    string   `json:"source"`
	Notes     string   `json:"notes,omitempty"`
}

// Rig profiles: tenant-scoped trailer templates resolvable by rig_id.

type RigSpec struct {
	MaxHeightFt   float64            `json:"max_height_ft"`
	MaxLengthFt   float64            `json:"max_length_ft"`
	MaxWidthFt    float64            `json:"max_width_ft"`
	AxleLimitsLbs map[string]float64 `json:"axle_limits_lbs"`
	EmptyAxleLbs  map[string]float64 `json:"empty_axle_lbs"`
}

type SlotSpec struct {
	ID             string             `json:"id"`
	Deck           string             `json:"deck"`
	PositionRank   int                `json:"position_rank"`
	MaxLengthFt    float64            `json:"max_length_ft"`
	MaxWidthFt     float64            `json:"max_width_ft"`
	MaxHeightFt    float64            `json:"max_height_ft"`
	HeightMarginFt float64            `json:"height_margin_ft"`
	AdjustmentCost float64            `json:"adjustment_cost"`
	AxleInfluence  map[string]float64 `json:"axle_influence"`
}

type RigProfileIn struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Rig         *RigIn   `json:"rig,omitempty"`
	Slots       []SlotIn `json:"slots,omitempty"`
}

type RigProfile struct {
	ID          string     `json:"id"`
	TenantID    string     `json:"tenant_id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Rig         RigSpec    `json:"rig"`
	Slots       []SlotSpec `json:"slots"`
	CreatedAt   string     `json:"created_at"`
	UpdatedAt   string     `json:"updated_at"`
}

// Geocode cache entry.
type GeocodeResult struct {
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	Label string  `json:"label"`
}

// Webhook subscriptions.

type SubscriptionRequest struct {
	TenantID string   `json:"tenant_id,omitempty"`
	URL      string   `json:"url"`
	Events   []string `json:"events"`
	Secret   string   `json:"secret"`
}

type Subscription struct {
	ID       string   `json:"id"`
	TenantID string   `json:"tenant_id"`
	URL      string   `json:"url"`
	Events   []string `json:"events"`
	Secret   string   `json:"secret,omitempty"`
}

// Async placement jobs.

type PlacementJob struct {
	ID         string             `json:"id"`
	TenantID   string             `json:"tenant_id"`
	Status     string             `json:"status"` // queued, running, completed, failed
	CreatedAt  string             `json:"created_at"`
	FinishedAt string             `json:"finished_at,omitempty"`
	Error      string             `json:"error,omitempty"`
	Result     *PlacementResponse `json:"result,omitempty"`
}

type JobEvent struct {
	Type    string         `json:"type"`
	JobID   string         `json:"job_id"`
	TS      string         `json:"ts"`
	Payload map[string]any `json:"payload,omitempty"`
}
