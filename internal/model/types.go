package model

import "time"

// Wire types shared by the engine boundary, the store and the HTTP API.

type Coordinates struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

type Location struct {
	ID          string      `json:"id" yaml:"id"`
	Name        string      `json:"name" yaml:"name"`
	Coordinates Coordinates `json:"coordinates" yaml:"coordinates"`
	Type        string      `json:"type,omitempty" yaml:"type,omitempty"` // depot, customer, ...
}

// Edge is the edge-list form of a city map connection. Weight is a pointer so
// a JSON null can be told apart from zero and rejected.
type Edge struct {
	From       string   `json:"from" yaml:"from"`
	To         string   `json:"to" yaml:"to"`
	Weight     *float64 `json:"weight" yaml:"weight"`
	Restricted bool     `json:"restricted,omitempty" yaml:"restricted,omitempty"`
}

// CityMap accepts both the adjacency form {"graph": {from: {to: weight}}}
// and an explicit edge list. Both may be given; edges are the union.
type CityMap struct {
	Locations  []Location                     `json:"locations" yaml:"locations"`
	Graph      map[string]map[string]*float64 `json:"graph,omitempty" yaml:"graph,omitempty"`
	Edges      []Edge                         `json:"edges,omitempty" yaml:"edges,omitempty"`
	Undirected bool                           `json:"undirected,omitempty" yaml:"undirected,omitempty"`
}

type TimeWindow struct {
	Start float64 `json:"start" yaml:"start"`
	End   float64 `json:"end" yaml:"end"`
}

const (
	PriorityHigh   = "High"
	PriorityNormal = "Normal"
	PriorityLow    = "Low"

	StatusPending   = "pending"
	StatusAssigned  = "assigned"
	StatusCompleted = "completed"
)

type Delivery struct {
	ID          string      `json:"id" yaml:"id"`
	Name        string      `json:"name" yaml:"name"`
	Location    string      `json:"location" yaml:"location"`
	TimeWindow  *TimeWindow `json:"timeWindow,omitempty" yaml:"timeWindow,omitempty"`
	Priority    string      `json:"priority,omitempty" yaml:"priority,omitempty"`
	Load        float64     `json:"load" yaml:"load"`
	Profit      float64     `json:"profit" yaml:"profit"`
	ServiceTime float64     `json:"serviceTime,omitempty" yaml:"serviceTime,omitempty"`
	Required    bool        `json:"required,omitempty" yaml:"required,omitempty"`
	Status      string      `json:"status,omitempty" yaml:"status,omitempty"`
}

// DeliveryPatch carries the fields of a partial update; nil fields are left alone.
type DeliveryPatch struct {
	Name        *string     `json:"name,omitempty"`
	Location    *string     `json:"location,omitempty"`
	TimeWindow  *TimeWindow `json:"timeWindow,omitempty"`
	Priority    *string     `json:"priority,omitempty"`
	Load        *float64    `json:"load,omitempty"`
	Profit      *float64    `json:"profit,omitempty"`
	ServiceTime *float64    `json:"serviceTime,omitempty"`
	Required    *bool       `json:"required,omitempty"`
	Status      *string     `json:"status,omitempty"`
}

type HeuristicParams struct {
	Scale    float64 `json:"scale,omitempty"`
	Disabled bool    `json:"disabled,omitempty"`
}

type RouteConfig struct {
	SourceLocation  string           `json:"sourceLocation"`
	VehicleCapacity float64          `json:"vehicleCapacity"`
	Algorithm       string           `json:"algorithm,omitempty"`
	RouteStrategy   string           `json:"routeStrategy,omitempty"`
	Heuristic       *HeuristicParams `json:"heuristic,omitempty"`
	TimeBudgetMs    int              `json:"timeBudgetMs,omitempty"`
	MaxIterations   int              `json:"maxIterations,omitempty"`
	StartTime       float64          `json:"startTime,omitempty"`
	Speed           float64          `json:"speed,omitempty"`
	ReturnToStart   bool             `json:"returnToStart,omitempty"`
}

type OptimizeRouteRequest struct {
	Config     RouteConfig `json:"config"`
	Deliveries []Delivery  `json:"deliveries"`
	CityMap    *CityMap    `json:"cityMap"`
}

type PlanCapacityRequest struct {
	Deliveries []Delivery `json:"deliveries"`
	Capacity   float64    `json:"capacity"`
}

type RouteStop struct {
	Seq          int      `json:"seq"`
	DeliveryID   string   `json:"deliveryId"`
	Location     string   `json:"location"`
	Arrival      float64  `json:"arrival"`
	ServiceStart float64  `json:"serviceStart"`
	Departure    float64  `json:"departure"`
	Wait         float64  `json:"wait"`
	LegCost      float64  `json:"legCost"`
	Path         []string `json:"path"`
}

type RouteOptimizationResult struct {
	Stops             []RouteStop         `json:"stops"`
	Path              []string            `json:"path"`
	TotalCost         float64             `json:"totalCost"`
	Feasible          bool                `json:"feasible"`
	Algorithm         string              `json:"algorithm"`
	PathAlgorithm     string              `json:"pathAlgorithm"`
	RouteAlgorithm    string              `json:"routeAlgorithm"`
	CapacityAlgorithm string              `json:"capacityAlgorithm,omitempty"`
	Exact             bool                `json:"exact"`
	Unscheduled       []string            `json:"unscheduled"`
	Dropped           []string            `json:"dropped"`
	CapacityPlan      *CapacityPlanResult `json:"capacityPlan,omitempty"`
	CapacityUsed      float64             `json:"capacityUsed"`
	Iterations        int                 `json:"iterations"`
	BudgetExhausted   bool                `json:"budgetExhausted"`
	NodesExplored     int                 `json:"nodesExplored"`
}

type SelectedDelivery struct {
	Delivery
	Fraction float64 `json:"fraction"`
}

type CapacityPlanResult struct {
	SelectedDeliveries  []SelectedDelivery `json:"selectedDeliveries"`
	TotalValue          float64            `json:"totalValue"`
	TotalWeight         float64            `json:"totalWeight"`
	Capacity            float64            `json:"capacity"`
	RemainingCapacity   float64            `json:"remainingCapacity"`
	CapacityUtilization float64            `json:"capacityUtilization"`
	Mode                string             `json:"mode"`
	Algorithm           string             `json:"algorithm"`
	Exact               bool               `json:"exact"`
	Rejected            []string           `json:"rejected"`
}

// ErrorBody is the structured failure returned across the engine boundary.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// RouteRecord is one entry of the route history.
type RouteRecord struct {
	ID           string      `json:"id"`
	Algorithm    string      `json:"algorithm"`
	TotalCost    float64     `json:"totalCost"`
	Deliveries   int         `json:"deliveries"`
	CapacityUsed float64     `json:"capacityUsed"`
	Feasible     bool        `json:"feasible"`
	Exact        bool        `json:"exact"`
	Stops        []RouteStop `json:"stops"`
	CreatedAt    time.Time   `json:"createdAt"`
}

type SavePlanRequest struct {
	Deliveries []Delivery `json:"deliveries"`
}

type SavePlanResult struct {
	Message    string `json:"message"`
	SavedCount int    `json:"savedCount"`
	TotalCount int    `json:"totalCount"`
}
