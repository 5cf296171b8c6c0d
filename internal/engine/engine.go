// Package engine is the invocation boundary around the route optimizer. It
// speaks a JSON request/response contract and never returns a partial
// result: every failure becomes a structured {"error", "message"} body.
package engine

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"optiroute/internal/model"
	"optiroute/internal/opt"
)

const (
	OpOptimizeRoute = "optimize-route"
	OpPlanCapacity  = "plan-capacity"
)

// Engine is stateless apart from its immutable scheduler configuration.
type Engine struct {
	sched *opt.Scheduler
}

func New(cfg opt.Config) *Engine { return &Engine{sched: opt.NewScheduler(cfg)} }

func (e *Engine) Config() opt.Config { return e.sched.Config() }

// OptimizeRoute validates the request, dispatches it and renders the result.
func (e *Engine) OptimizeRoute(req model.OptimizeRouteRequest) (model.RouteOptimizationResult, error) {
	g, err := buildGraph(req.CityMap)
	if err != nil {
		return model.RouteOptimizationResult{}, err
	}
	if err := checkDeliveries(req.Deliveries); err != nil {
		return model.RouteOptimizationResult{}, err
	}
	rr, err := routeRequest(g, req)
	if err != nil {
		return model.RouteOptimizationResult{}, err
	}
	res, err := e.sched.OptimizeRoute(rr)
	if err != nil {
		return model.RouteOptimizationResult{}, err
	}
	return routeResult(res, req.Deliveries, rr.Start, rr.ReturnToStart), nil
}

// PlanCapacity selects deliveries for one vehicle.
func (e *Engine) PlanCapacity(req model.PlanCapacityRequest) (model.CapacityPlanResult, error) {
	if err := checkDeliveries(req.Deliveries); err != nil {
		return model.CapacityPlanResult{}, err
	}
	plan, err := e.sched.PlanCapacity(items(req.Deliveries), req.Capacity)
	if err != nil {
		return model.CapacityPlanResult{}, err
	}
	return capacityResult(plan, req.Deliveries), nil
}

// Response is the outcome of one invocation. Body is always valid JSON:
// either the result or an ErrorBody. Value holds the typed result on success.
type Response struct {
	Body      []byte
	Value     any
	Err       *model.ErrorBody
	Algorithm string
}

// Call runs op on payload. Panics inside a solver are reported as
// InternalError.
func (e *Engine) Call(op string, payload []byte) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			resp = failure(&opt.Error{Kind: opt.KindInternal, Message: fmt.Sprintf("panic: %v", r)})
		}
	}()

	var (
		value any
		alg   string
		err   error
	)
	switch op {
	case OpOptimizeRoute:
		var req model.OptimizeRouteRequest
		if err = decode(payload, &req); err == nil {
			var res model.RouteOptimizationResult
			if res, err = e.OptimizeRoute(req); err == nil {
				value, alg = res, res.Algorithm
			}
		}
	case OpPlanCapacity:
		var req model.PlanCapacityRequest
		if err = decode(payload, &req); err == nil {
			var res model.CapacityPlanResult
			if res, err = e.PlanCapacity(req); err == nil {
				value, alg = res, res.Algorithm
			}
		}
	default:
		err = opt.InvalidRequestf(op, "unknown operation %q", op)
	}
	if err != nil {
		return failure(err)
	}
	body, err := json.Marshal(value)
	if err != nil {
		return failure(&opt.Error{Kind: opt.KindInternal, Message: "encode result: " + err.Error()})
	}
	return Response{Body: body, Value: value, Algorithm: alg}
}

// Invoke is Call reduced to the wire contract.
func (e *Engine) Invoke(op string, payload []byte) []byte { return e.Call(op, payload).Body }

func decode(payload []byte, v any) error {
	if len(bytes.TrimSpace(payload)) == 0 {
		return opt.InvalidRequestf("", "empty payload")
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return opt.InvalidRequestf("", "malformed payload: %v", err)
	}
	return nil
}

// ErrorFrom maps any error onto the structured error body.
func ErrorFrom(err error) model.ErrorBody {
	var e *opt.Error
	if errors.As(err, &e) {
		return model.ErrorBody{Error: string(e.Kind), Message: e.Message}
	}
	return model.ErrorBody{Error: string(opt.KindInternal), Message: err.Error()}
}

func failure(err error) Response {
	eb := ErrorFrom(err)
	body, _ := json.Marshal(eb)
	return Response{Body: body, Err: &eb}
}
