package api

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "math"
    "net/http"
    "os"
    "strings"
    "time"

    "haulplan/internal/analytics"
    "haulplan/internal/geo"
    "haulplan/internal/geocode"
    "haulplan/internal/metrics"
    "haulplan/internal/model"
    "haulplan/internal/opt"
    "haulplan/internal/routing"
    "haulplan/internal/specs"
    "haulplan/internal/store"
)

func round1(x float64) float64 { return math.Round(x*10) / 10 }
func round2(x float64) float64 { return math.Round(x*100) / 100 }
func round3(x float64) float64 { return math.Round(x*1000) / 1000 }

// normalizeCars resolves the wire shape onto engine cars: id falls back to
// vin, then name, then CAR_{n}; width and drop order take their defaults.
// Resolved ids must be unique or the whole request is rejected.
func normalizeCars(in []model.CarIn) ([]opt.Car, error) {
    out := make([]opt.Car, 0, len(in))
    seen := map[string]int{}
    for i, c := range in {
        id := strings.TrimSpace(c.ID)
        if id == "" { id = strings.TrimSpace(c.VIN) }
        if id == "" { id = strings.TrimSpace(c.Name) }
        if id == "" { id = fmt.Sprintf("CAR_%d", i+1) }
        if prev, dup := seen[id]; dup {
            return nil, fmt.Errorf("cars[%d]: id %q already used by cars[%d]", i, id, prev)
        }
        seen[id] = i
        width := opt.DefaultCarWidthFt
        if c.WidthFt != nil { width = *c.WidthFt }
        drop := i + 1
        if c.DropOrder != nil { drop = *c.DropOrder }
        out = append(out, opt.Car{ID: id, LengthFt: c.LengthFt, WidthFt: width, HeightFt: c.HeightFt, WeightLbs: c.WeightLbs, DropOrder: drop})
    }
    return out, nil
}

type apiError struct {
    Status int
    Title  string
    Detail string
}

// resolveProblem builds the solver input from a placement request. With a
// rig_id the stored profile supplies the rig and catalog; an inline rig then
// patches individual limits and inline slots replace the catalog wholesale.
func (s *Server) resolveProblem(ctx context.Context, tenant string, req model.PlacementRequest) (opt.Problem, *apiError) {
    cars, err := normalizeCars(req.Cars)
    if err != nil {
        return opt.Problem{}, &apiError{http.StatusBadRequest, "Invalid placement request", err.Error()}
    }
    rigSpec := opt.RigSpecFromInput(req.Rig)
    slotSpecs := opt.SlotSpecsFromInput(req.Slots)
    if req.RigID != "" {
        rp, err := s.Store.GetRig(ctx, tenant, req.RigID)
        if err != nil {
            if errors.Is(err, store.ErrNotFound) {
                return opt.Problem{}, &apiError{http.StatusNotFound, "Rig not found", req.RigID}
            }
            return opt.Problem{}, &apiError{http.StatusInternalServerError, "Rig lookup failed", err.Error()}
        }
        rigSpec = opt.MergeRigSpec(rp.Rig, req.Rig)
        if len(req.Slots) == 0 { slotSpecs = rp.Slots }
    }
    return opt.Problem{Cars: cars, Slots: opt.SlotsFromSpec(slotSpecs), Rig: opt.RigFromSpec(rigSpec)}, nil
}

// runPlacement executes the solver and fans out the run: per-tenant
// diagnostics keyed by mode and day, Prometheus counters, and the
// placement.computed / placement.infeasible webhook events.
func (s *Server) runPlacement(ctx context.Context, tenant, mode string, p opt.Problem, seed int64, iters int, onImprove func(int, float64)) (model.PlacementResponse, opt.Plan) {
    plan, m := opt.SolveObserved(p, seed, iters, onImprove)
    opt.RecordMetrics(tenant, time.Now().UTC().Format("2006-01-02"), mode, m)
    outcome := "feasible"
    if !plan.Feasible { outcome = "infeasible" }
    metrics.PlacementRuns.WithLabelValues(outcome).Inc()
    metrics.PlacementIterations.Observe(float64(m.Iterations))
    if plan.Feasible { metrics.PlacementFitness.Observe(plan.Scores.Fitness) }

    resp := model.PlacementResponse{
        Assignments: make([]model.Assignment, 0, len(plan.Assignments)),
        Scores: model.Scores{
            Fitness:       plan.Scores.Fitness,
            UnloadMoves:   plan.Scores.UnloadMoves,
            AxleMaxPct:    plan.Scores.AxleMaxPct,
            HeightPenalty: plan.Scores.HeightPenalty,
            AdjCost:       plan.Scores.AdjCost,
        },
        Warnings: append([]string{}, plan.Warnings...),
        Feasible: plan.Feasible,
    }
    for _, a := range plan.Assignments {
        resp.Assignments = append(resp.Assignments, model.Assignment{CarID: a.CarID, SlotID: a.SlotID})
    }

    if plan.Feasible {
        s.Pub.Emit(ctx, tenant, "placement.computed", map[string]any{
            "mode": mode, "cars": len(p.Cars), "fitness": plan.Scores.Fitness,
            "unloadMoves": plan.Scores.UnloadMoves, "warnings": len(resp.Warnings),
        })
    } else {
        s.Pub.Emit(ctx, tenant, "placement.infeasible", map[string]any{
            "mode": mode, "cars": len(p.Cars), "warnings": resp.Warnings,
        })
    }
    return resp, plan
}

// PlacementHandler handles POST /v1/placement
func (s *Server) PlacementHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    pr := s.getPrincipal(r)
    if !pr.CanPlan() { writeProblem(w, 403, "Forbidden", "planner or admin required", r.URL.Path); return }
    var req model.PlacementRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
        return
    }
    if err := validatePlacementRequest(&req); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid placement request", err.Error(), r.URL.Path)
        return
    }
    p, aerr := s.resolveProblem(r.Context(), pr.Tenant, req)
    if aerr != nil { writeProblem(w, aerr.Status, aerr.Title, aerr.Detail, r.URL.Path); return }
    iters := opt.DefaultMaxIters
    if req.MaxIters != nil { iters = *req.MaxIters }
    seed := int64(opt.DefaultSeed)
    if req.Seed != nil { seed = *req.Seed }
    resp, _ := s.runPlacement(r.Context(), pr.Tenant, "placement", p, seed, iters, nil)
    writeJSON(w, http.StatusOK, resp)
}

// PlacementPlanHandler handles POST /v1/placement/plan: solve on the stock
// nine-slot catalog, then project loaded heights with per-slot offsets and
// forward/reversed orientation.
func (s *Server) PlacementPlanHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    pr := s.getPrincipal(r)
    if !pr.CanPlan() { writeProblem(w, 403, "Forbidden", "planner or admin required", r.URL.Path); return }
    var req model.PlacementPlanRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
        return
    }
    if err := validatePlacementPlanRequest(&req); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid plan request", err.Error(), r.URL.Path)
        return
    }
    cars, err := normalizeCars(req.Cars)
    if err != nil { writeProblem(w, 400, "Invalid plan request", err.Error(), r.URL.Path); return }

    deckFt := opt.DefaultDeckHeightFt
    if req.DeckHeightFt != nil { deckFt = *req.DeckHeightFt }
    rules := opt.DefaultOrientationRules()
    if in := req.OrientationRules; in != nil {
        if in.AllowReversed != nil { rules.AllowReversed = *in.AllowReversed }
        if in.TopOnly != nil { rules.TopOnly = *in.TopOnly }
        if in.MinHeightForBenefitFt != nil { rules.MinHeightForBenefitFt = *in.MinHeightForBenefitFt }
        if in.ReverseBonusFt != nil { rules.ReverseBonusFt = *in.ReverseBonusFt }
    }
    iters := opt.DefaultPlanMaxIters
    if req.MaxIters != nil { iters = *req.MaxIters }
    seed := int64(opt.DefaultSeed)
    if req.Seed != nil { seed = *req.Seed }

    p := opt.Problem{Cars: cars, Slots: opt.DefaultSlots9(), Rig: opt.DefaultRig()}
    resp, plan := s.runPlacement(r.Context(), pr.Tenant, "placement-plan", p, seed, iters, nil)
    proj := opt.ProjectHeights(plan.Assignments, cars, deckFt, req.SlotOffsetsFt, rules)

    pa := make([]model.PlannedAssignment, 0, len(proj.Assignments))
    for _, a := range proj.Assignments {
        pa = append(pa, model.PlannedAssignment{CarID: a.CarID, SlotID: a.SlotID, Orientation: a.Orientation, LoadedFt: a.LoadedFt, OffsetFt: a.OffsetFt})
    }
    writeJSON(w, http.StatusOK, model.PlacementPlanResponse{
        Assignments:     pa,
        Scores:          resp.Scores,
        Warnings:        append(resp.Warnings, proj.Warnings...),
        Feasible:        resp.Feasible,
        HeightsByDeck:   model.DeckHeights{LowerLoadedFt: proj.LowerFt, UpperLoadedFt: proj.UpperFt},
        MaxLoaded:       model.MaxLoaded{Lower: deckPeak(proj.LowerPeak), Upper: deckPeak(proj.UpperPeak)},
        DeckProfileUsed: model.DeckProfile{DeckHeightFt: deckFt},
        SlotOffsetsUsed: proj.OffsetsUsed,
        OrientationRulesUsed: model.OrientationRules{
            AllowReversed:         rules.AllowReversed,
            TopOnly:               rules.TopOnly,
            MinHeightForBenefitFt: rules.MinHeightForBenefitFt,
            ReverseBonusFt:        rules.ReverseBonusFt,
        },
    })
}

func deckPeak(p *opt.PeakSlot) *model.DeckPeak {
    if p == nil { return nil }
    return &model.DeckPeak{SlotID: p.SlotID, LoadedFt: p.LoadedFt}
}

// haulCars keys calculator cars by position so duplicate make/model pairs
// stay distinct through the arrangement and map back to their request rows.
func haulCars(in []model.HaulCar) []opt.Car {
    out := make([]opt.Car, 0, len(in))
    for i, c := range in {
        out = append(out, opt.Car{ID: fmt.Sprintf("CAR_%d", i+1), HeightFt: c.HeightFt, WeightLbs: c.WeightLbs})
    }
    return out
}

// LoadCheckHandler handles POST /v1/loadcheck
func (s *Server) LoadCheckHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    var req model.LoadCheckRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
        return
    }
    out := opt.CalculateLoad(req.TruckWeightLbs, req.TrailerWeightLbs, req.TrailerHeightFt, haulCars(req.Cars))
    if len(out.Warnings) > 0 {
        pr := s.getPrincipal(r)
        s.Pub.Emit(r.Context(), pr.Tenant, "load.flagged", map[string]any{
            "source": "loadcheck", "total_weight_lbs": out.TotalWeightLbs,
            "total_height_ft": out.TotalHeightFt, "warnings": out.Warnings,
        })
    }
    writeJSON(w, http.StatusOK, model.LoadCheckResponse{
        TruckWeightLbs:     out.TruckWeightLbs,
        TrailerWeightLbs:   out.TrailerWeightLbs,
        TrailerHeightFt:    out.TrailerHeightFt,
        TotalWeightLbs:     out.TotalWeightLbs,
        NaiveTotalHeightFt: out.NaiveTotalHeightFt,
        TotalHeightFt:      out.TotalHeightFt,
        Warnings:           append([]string{}, out.Warnings...),
    })
}

// ArrangementHandler handles POST /v1/arrangement
func (s *Server) ArrangementHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    var req model.ArrangementRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
        return
    }
    trailerH := opt.DefaultDeckHeightFt
    if req.TrailerHeightFt != nil { trailerH = *req.TrailerHeightFt }
    maxH := float64(opt.MaxHeightFeet)
    if req.MaxHeightFt != nil { maxH = *req.MaxHeightFt }
    truckW, trailerW := 0.0, 0.0
    if req.TruckWeightLbs != nil { truckW = *req.TruckWeightLbs }
    if req.TrailerWeightLbs != nil { trailerW = *req.TrailerWeightLbs }
    maxW := float64(opt.MaxWeightLbs)
    if req.MaxWeightLbs != nil { maxW = *req.MaxWeightLbs }

    cars := haulCars(req.Cars)
    arr := opt.SuggestArrangement(cars, trailerH, maxH, truckW, trailerW, maxW)

    byID := map[string]model.HaulCar{}
    for i, c := range cars {
        byID[c.ID] = req.Cars[i]
    }
    layout := make(map[string]*model.ArrangedSlot, len(arr.Layout))
    for slot, v := range arr.Layout {
        if v == nil {
            layout[slot] = nil
            continue
        }
        layout[slot] = &model.ArrangedSlot{Car: byID[v.Car.ID], LoadedHeightFt: v.LoadedHeightFt, Deck: v.Deck}
    }
    arranged := make([]model.HaulCar, 0, len(arr.ArrangedCars))
    for _, c := range arr.ArrangedCars {
        arranged = append(arranged, byID[c.ID])
    }
    off := arr.UpperDeckOffsetFt
    writeJSON(w, http.StatusOK, model.ArrangementResponse{
        Layout:              layout,
        HeightsByDeck:       model.DeckHeights{LowerLoadedFt: arr.LowerLoadedFt, UpperLoadedFt: arr.UpperLoadedFt, UpperDeckOffsetFt: &off},
        ComputedMaxHeightFt: arr.ComputedMaxHeightFt,
        ArrangedCars:        arranged,
        Warnings:            append([]string{}, arr.Warnings...),
    })
}

func resolveProfile(req model.RoutePlanRequest) model.TruckProfile {
    p := model.TruckProfile{
        TruckWeightLbs:   20000,
        TrailerWeightLbs: 18000,
        TrailerHeightFt:  5.0,
        TruckLengthFt:    75.0,
        TruckWidthFt:     8.5,
        WeightPerAxleLbs: 12000,
    }
    if req.TruckWeightLbs != nil { p.TruckWeightLbs = *req.TruckWeightLbs }
    if req.TrailerWeightLbs != nil { p.TrailerWeightLbs = *req.TrailerWeightLbs }
    if req.TrailerHeightFt != nil { p.TrailerHeightFt = *req.TrailerHeightFt }
    if req.TruckLengthFt != nil { p.TruckLengthFt = *req.TruckLengthFt }
    if req.TruckWidthFt != nil { p.TruckWidthFt = *req.TruckWidthFt }
    if req.WeightPerAxleLbs != nil { p.WeightPerAxleLbs = *req.WeightPerAxleLbs }
    return p
}

func writeGeocodeErr(w http.ResponseWriter, err error, input, side, instance string) {
    if errors.Is(err, geocode.ErrNoMatch) {
        writeProblem(w, http.StatusUnprocessableEntity, "Geocoding failed", fmt.Sprintf("Could not geocode: %s", input), instance)
        return
    }
    writeProblem(w, http.StatusUnprocessableEntity, "Geocoding failed", fmt.Sprintf("Failed to resolve %s: %v", side, err), instance)
}

func layoutToModel(l opt.LayoutSuggestion) model.LayoutSuggestion {
    layout := make(map[string]*model.LayoutSlot, len(l.Layout))
    for slot, v := range l.Layout {
        if v == nil {
            layout[slot] = nil
            continue
        }
        layout[slot] = &model.LayoutSlot{
            Car: model.LayoutCarOut{
                Make: v.Car.Make, Model: v.Car.Model, Year: v.Car.Year,
                HeightFt: v.Car.HeightFt, WeightLbs: v.Car.WeightLbs,
            },
            LoadedHeightFt: v.LoadedHeightFt,
        }
    }
    off := l.UpperDeckOffsetFt
    return model.LayoutSuggestion{
        Layout: layout,
        HeightsByDeck: model.DeckHeights{
            LowerLoadedFt:     l.LowerLoadedFt,
            UpperLoadedFt:     l.UpperLoadedFt,
            UpperDeckOffsetFt: &off,
        },
    }
}

// RoutePlanHandler handles POST /v1/route-plan: geocode both ends, resolve
// missing car dimensions, suggest a layout, and route the loaded profile
// through HERE with height analysis.
func (s *Server) RoutePlanHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    pr := s.getPrincipal(r)
    if !pr.CanPlan() { writeProblem(w, 403, "Forbidden", "planner or admin required", r.URL.Path); return }
    var req model.RoutePlanRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
        return
    }
    if strings.TrimSpace(req.Origin) == "" || strings.TrimSpace(req.Destination) == "" {
        writeProblem(w, http.StatusBadRequest, "Invalid route request", "origin and destination are required", r.URL.Path)
        return
    }
    if len(req.Cars) == 0 {
        writeProblem(w, http.StatusBadRequest, "Invalid route request", "Add at least one car.", r.URL.Path)
        return
    }
    profile := resolveProfile(req)
    ctx := r.Context()

    origin, err := s.Geocoder.Resolve(ctx, req.Origin)
    if err != nil { writeGeocodeErr(w, err, req.Origin, "origin", r.URL.Path); return }
    dest, err := s.Geocoder.Resolve(ctx, req.Destination)
    if err != nil { writeGeocodeErr(w, err, req.Destination, "destination", r.URL.Path); return }

    resolved, specWarnings := s.Specs.ResolveMissing(ctx, req.Cars)
    layoutCars := make([]opt.LayoutCar, 0, len(resolved))
    totalWeight := profile.TruckWeightLbs + profile.TrailerWeightLbs
    for _, c := range resolved {
        h, wt := 5.0, 3500.0
        if c.HeightFt != nil { h = *c.HeightFt }
        if c.WeightLbs != nil { wt = *c.WeightLbs }
        layoutCars = append(layoutCars, opt.LayoutCar{Make: c.Make, Model: c.Model, Year: c.Year, HeightFt: h, WeightLbs: wt})
        totalWeight += wt
    }
    layout := opt.SuggestLayout(layoutCars, profile.TrailerHeightFt)
    totalHeight := math.Max(layout.LowerLoadedFt, layout.UpperLoadedFt)
    totals := model.LoadTotals{
        TotalHeightFt:  round2(totalHeight),
        TotalHeightM:   round3(geo.FeetToMeters(totalHeight)),
        TotalWeightLbs: round1(totalWeight),
        TotalWeightKg:  round1(geo.PoundsToKg(totalWeight)),
    }

    pkg := s.Router.PlanWithHeightAnalysis(ctx, routing.PlanRequest{
        Start:                 geo.Point{Lat: origin.Lat, Lng: origin.Lng},
        End:                   geo.Point{Lat: dest.Lat, Lng: dest.Lng},
        HeightM:               geo.FeetToMeters(totalHeight),
        WeightKg:              geo.PoundsToKg(totalWeight),
        LengthM:               geo.FeetToMeters(profile.TruckLengthFt),
        WidthM:                geo.FeetToMeters(profile.TruckWidthFt),
        WeightPerAxleKg:       geo.PoundsToKg(profile.WeightPerAxleLbs),
        ShippedHazardousGoods: req.ShippedHazardousGoods,
        TunnelCategory:        req.TunnelCategory,
        TotalHeightFt:         totalHeight,
        FacilitiesFile:        os.Getenv("FACILITIES_FILE"),
    })
    // Resolver estimates ride along with the routing warnings.
    pkg.Warnings = append(append([]string{}, specWarnings...), pkg.Warnings...)

    chosen := pkg.PrimarySummary
    if pkg.ChosenIsAlternative && pkg.AlternativeSummary != nil { chosen = pkg.AlternativeSummary }
    if chosen == nil || !chosen.OK {
        if pkg.PrimarySummary != nil { chosen = pkg.PrimarySummary } else { chosen = &routing.Summary{} }
    }

    suggestion := layoutToModel(layout)
    s.Analytics.Log(map[string]any{
        "type":                  "plan_route",
        "client":                analytics.HashClient(r.RemoteAddr),
        "origin":                origin.Label,
        "destination":           dest.Label,
        "origin_coord":          analytics.RoundCoord(origin.Lat, origin.Lng),
        "destination_coord":     analytics.RoundCoord(dest.Lat, dest.Lng),
        "cars_count":            len(req.Cars),
        "totals":                totals,
        "heights_by_deck":       suggestion.HeightsByDeck,
        "warnings":              pkg.Warnings,
        "primary_summary":       pkg.PrimarySummary,
        "alternative_summary":   pkg.AlternativeSummary,
        "chosen_is_alternative": pkg.ChosenIsAlternative,
        "chose_reason":          pkg.ChoseReason,
    })

    if chosen.OK {
        s.Pub.Emit(ctx, pr.Tenant, "route.planned", map[string]any{
            "origin": origin.Label, "destination": dest.Label,
            "duration_s": chosen.Duration, "length_m": chosen.Length,
            "chosen_is_alternative": pkg.ChosenIsAlternative, "reason": pkg.ChoseReason,
        })
    }
    if totalHeight > opt.MaxHeightFeet || totalWeight > opt.MaxWeightLbs {
        s.Pub.Emit(ctx, pr.Tenant, "load.flagged", map[string]any{
            "source": "route-plan", "total_height_ft": totals.TotalHeightFt,
            "total_weight_lbs": totals.TotalWeightLbs, "warnings": pkg.Warnings,
        })
    }

    writeJSON(w, http.StatusOK, map[string]any{
        "geocoding": model.Geocoding{
            OriginInput:      req.Origin,
            DestinationInput: req.Destination,
            OriginCoord:      [2]float64{origin.Lat, origin.Lng},
            DestinationCoord: [2]float64{dest.Lat, dest.Lng},
            OriginLabel:      origin.Label,
            DestinationLabel: dest.Label,
        },
        "profile_used":    profile,
        "totals_for_here": totals,
        "suggestion":      suggestion,
        "routing":         pkg,
        "chosen_summary":  chosen,
        "decision":        map[string]any{"reason": pkg.ChoseReason},
    })
}

// VehicleSpecsHandler handles POST /v1/vehicle-specs (and the legacy
// unversioned path). Resolution never fails: the chain bottoms out in a
// segment estimate whose source says so.
func (s *Server) VehicleSpecsHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    var req model.VehicleSpecsRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
        return
    }
    if req.Year <= 0 || strings.TrimSpace(req.Make) == "" || strings.TrimSpace(req.Model) == "" {
        writeProblem(w, http.StatusBadRequest, "Invalid specs request", "year, make and model are required", r.URL.Path)
        return
    }
    writeJSON(w, http.StatusOK, s.Specs.Resolve(r.Context(), req))
}

// VehicleOptionsMakesHandler handles GET /v1/vehicle-options/makes
func (s *Server) VehicleOptionsMakesHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    writeJSON(w, http.StatusOK, map[string]any{"makes": specs.Makes()})
}

// VehicleOptionsModelsHandler handles GET /v1/vehicle-options/models?make=&year=
func (s *Server) VehicleOptionsModelsHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    mk := strings.TrimSpace(r.URL.Query().Get("make"))
    if mk == "" { writeProblem(w, http.StatusBadRequest, "Missing make", "", r.URL.Path); return }
    year := time.Now().Year()
    if v := r.URL.Query().Get("year"); v != "" { fmt.Sscanf(v, "%d", &year) }
    models := s.Options.Models(r.Context(), mk, year)
    writeJSON(w, http.StatusOK, map[string]any{"make": mk, "year": year, "models": models})
}

// RigsHandler handles POST/GET /v1/rigs
func (s *Server) RigsHandler(w http.ResponseWriter, r *http.Request) {
    pr := s.getPrincipal(r)
    switch r.Method {
    case http.MethodGet:
        cursor := r.URL.Query().Get("cursor")
        limit := 100
        if v := r.URL.Query().Get("limit"); v != "" { fmt.Sscanf(v, "%d", &limit) }
        items, next, err := s.Store.ListRigs(r.Context(), pr.Tenant, cursor, limit)
        if err != nil { writeProblem(w, 500, "List rigs failed", err.Error(), r.URL.Path); return }
        writeJSON(w, 200, map[string]any{"items": items, "nextCursor": next})
    case http.MethodPost:
        if !pr.CanPlan() { writeProblem(w, 403, "Forbidden", "planner or admin required", r.URL.Path); return }
        var in model.RigProfileIn
        if err := json.NewDecoder(r.Body).Decode(&in); err != nil { writeProblem(w, 400, "Invalid JSON", err.Error(), r.URL.Path); return }
        if strings.TrimSpace(in.Name) == "" { writeProblem(w, 400, "Invalid rig profile", "name is required", r.URL.Path); return }
        if err := validateSlots(in.Slots); err != nil { writeProblem(w, 400, "Invalid rig profile", err.Error(), r.URL.Path); return }
        rp, err := s.Store.CreateRig(r.Context(), pr.Tenant, in)
        if err != nil { writeProblem(w, 500, "Create rig failed", err.Error(), r.URL.Path); return }
        writeJSON(w, 201, rp)
    default:
        w.WriteHeader(http.StatusMethodNotAllowed)
    }
}

// RigByIDHandler handles GET/PATCH/DELETE /v1/rigs/{id}
func (s *Server) RigByIDHandler(w http.ResponseWriter, r *http.Request) {
    if !strings.HasPrefix(r.URL.Path, "/v1/rigs/") { writeProblem(w, 404, "Not Found", "", r.URL.Path); return }
    id := strings.TrimPrefix(r.URL.Path, "/v1/rigs/")
    pr := s.getPrincipal(r)
    switch r.Method {
    case http.MethodGet:
        rp, err := s.Store.GetRig(r.Context(), pr.Tenant, id)
        if err != nil { writeStoreErr(w, err, "Rig not found", r.URL.Path); return }
        writeJSON(w, 200, rp)
    case http.MethodPatch:
        if !pr.CanPlan() { writeProblem(w, 403, "Forbidden", "planner or admin required", r.URL.Path); return }
        var in model.RigProfileIn
        if err := json.NewDecoder(r.Body).Decode(&in); err != nil { writeProblem(w, 400, "Invalid JSON", err.Error(), r.URL.Path); return }
        if err := validateSlots(in.Slots); err != nil { writeProblem(w, 400, "Invalid rig profile", err.Error(), r.URL.Path); return }
        rp, err := s.Store.UpdateRig(r.Context(), pr.Tenant, id, in)
        if err != nil { writeStoreErr(w, err, "Rig not found", r.URL.Path); return }
        writeJSON(w, 200, rp)
    case http.MethodDelete:
        if !pr.CanPlan() { writeProblem(w, 403, "Forbidden", "planner or admin required", r.URL.Path); return }
        if err := s.Store.DeleteRig(r.Context(), pr.Tenant, id); err != nil { writeStoreErr(w, err, "Rig not found", r.URL.Path); return }
        w.WriteHeader(204)
    default:
        w.WriteHeader(http.StatusMethodNotAllowed)
    }
}

// SubscriptionsHandler handles POST/GET /v1/subscriptions
func (s *Server) SubscriptionsHandler(w http.ResponseWriter, r *http.Request) {
    switch r.Method {
    case http.MethodPost:
        p := s.getPrincipal(r)
        if !p.IsAdmin() { writeProblem(w, 403, "Forbidden", "admin required", r.URL.Path); return }
        var req model.SubscriptionRequest
        if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
            writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
            return
        }
        if strings.TrimSpace(req.URL) == "" { writeProblem(w, 400, "Invalid subscription", "url is required", r.URL.Path); return }
        if req.TenantID == "" { req.TenantID = p.Tenant }
        sub, err := s.Store.CreateSubscription(r.Context(), req)
        if err != nil {
            writeProblem(w, http.StatusInternalServerError, "Create subscription failed", err.Error(), r.URL.Path)
            return
        }
        writeJSON(w, http.StatusCreated, sub)
    case http.MethodGet:
        p := s.getPrincipal(r)
        if !p.IsAdmin() { writeProblem(w, 403, "Forbidden", "admin required", r.URL.Path); return }
        cursor := r.URL.Query().Get("cursor")
        limit := 100
        if v := r.URL.Query().Get("limit"); v != "" { fmt.Sscanf(v, "%d", &limit) }
        items, next, err := s.Store.ListSubscriptions(r.Context(), p.Tenant, cursor, limit)
        if err != nil { writeProblem(w, 500, "List subscriptions failed", err.Error(), r.URL.Path); return }
        writeJSON(w, 200, map[string]any{"items": items, "nextCursor": next})
    default:
        w.WriteHeader(http.StatusMethodNotAllowed)
    }
}

// SubscriptionByIDHandler handles DELETE /v1/subscriptions/{id}
func (s *Server) SubscriptionByIDHandler(w http.ResponseWriter, r *http.Request) {
    if !strings.HasPrefix(r.URL.Path, "/v1/subscriptions/") { writeProblem(w, 404, "Not Found", "", r.URL.Path); return }
    if r.Method != http.MethodDelete { w.WriteHeader(405); return }
    p := s.getPrincipal(r)
    if !p.IsAdmin() { writeProblem(w, 403, "Forbidden", "admin required", r.URL.Path); return }
    id := strings.TrimPrefix(r.URL.Path, "/v1/subscriptions/")
    if err := s.Store.DeleteSubscription(r.Context(), p.Tenant, id); err != nil { writeStoreErr(w, err, "Subscription not found", r.URL.Path); return }
    w.WriteHeader(204)
}

// Health
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
    writeJSON(w, 200, map[string]string{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
    // Check DB connectivity when using Postgres store
    type pinger interface{ Ping(ctx context.Context) error }
    if pg, ok := s.Store.(pinger); ok {
        ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
        defer cancel()
        if err := pg.Ping(ctx); err != nil { writeProblem(w, 503, "Not Ready", err.Error(), r.URL.Path); return }
    }
    writeJSON(w, 200, map[string]string{"status": "ready"})
}

// Admin: webhook deliveries list and retry
func (s *Server) WebhookDeliveriesHandler(w http.ResponseWriter, r *http.Request) {
    if r.URL.Path != "/v1/admin/webhook-deliveries" { writeProblem(w, 404, "Not Found", "", r.URL.Path); return }
    p := s.getPrincipal(r)
    if !p.IsAdmin() { writeProblem(w, 403, "Forbidden", "admin required", r.URL.Path); return }
    if r.Method != http.MethodGet { w.WriteHeader(405); return }
    status := r.URL.Query().Get("status")
    cursor := r.URL.Query().Get("cursor")
    limit := 100
    if v := r.URL.Query().Get("limit"); v != "" { fmt.Sscanf(v, "%d", &limit) }
    items, next, err := s.Store.ListWebhookDeliveries(r.Context(), p.Tenant, status, cursor, limit)
    if err != nil { writeProblem(w, 500, "List deliveries failed", err.Error(), r.URL.Path); return }
    writeJSON(w, 200, map[string]any{"items": items, "nextCursor": next})
}

func (s *Server) WebhookDeliveryRetryHandler(w http.ResponseWriter, r *http.Request) {
    if !strings.HasPrefix(r.URL.Path, "/v1/admin/webhook-deliveries/") || !strings.HasSuffix(r.URL.Path, "/retry") { writeProblem(w, 404, "Not Found", "", r.URL.Path); return }
    if r.Method != http.MethodPost { w.WriteHeader(405); return }
    p := s.getPrincipal(r)
    if !p.IsAdmin() { writeProblem(w, 403, "Forbidden", "admin required", r.URL.Path); return }
    id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/v1/admin/webhook-deliveries/"), "/retry")
    if err := s.Store.RetryWebhookDelivery(r.Context(), p.Tenant, id); err != nil { writeProblem(w, 500, "Retry delivery failed", err.Error(), r.URL.Path); return }
    writeJSON(w, 202, map[string]int{"accepted": 1})
}

// Admin: webhook metrics
func (s *Server) WebhookMetricsHandler(w http.ResponseWriter, r *http.Request) {
    if r.URL.Path != "/v1/admin/webhook-metrics" || r.Method != http.MethodGet { writeProblem(w, 404, "Not Found", "", r.URL.Path); return }
    p := s.getPrincipal(r)
    if !p.IsAdmin() { writeProblem(w, 403, "Forbidden", "admin required", r.URL.Path); return }
    sinceHours := 24
    if v := r.URL.Query().Get("sinceHours"); v != "" { fmt.Sscanf(v, "%d", &sinceHours) }
    eventType := r.URL.Query().Get("eventType")
    status := r.URL.Query().Get("status")
    codeMin := 0; codeMax := 0
    if v := r.URL.Query().Get("responseCodeMin"); v != "" { fmt.Sscanf(v, "%d", &codeMin) }
    if v := r.URL.Query().Get("responseCodeMax"); v != "" { fmt.Sscanf(v, "%d", &codeMax) }
    // codeClass shorthand
    if v := r.URL.Query().Get("codeClass"); v != "" && codeMin == 0 && codeMax == 0 {
        switch v {
        case "2xx": codeMin, codeMax = 200, 299
        case "3xx": codeMin, codeMax = 300, 399
        case "4xx": codeMin, codeMax = 400, 499
        case "5xx": codeMin, codeMax = 500, 599
        }
    }
    var buckets []int
    if v := r.URL.Query().Get("buckets"); v != "" {
        for _, part := range strings.Split(v, ",") {
            n := 0
            if _, err := fmt.Sscanf(strings.TrimSpace(part), "%d", &n); err == nil && n > 0 { buckets = append(buckets, n) }
        }
    }
    since := time.Now().Add(-time.Duration(sinceHours) * time.Hour)
    items, err := s.Store.WebhookMetrics(r.Context(), p.Tenant, since, eventType, status, codeMin, codeMax, buckets)
    if err != nil { writeProblem(w, 500, "Metrics failed", err.Error(), r.URL.Path); return }
    writeJSON(w, 200, map[string]any{"items": items})
}

// Admin: per-tenant solver diagnostics by day and mode
func (s *Server) PlanMetricsHandler(w http.ResponseWriter, r *http.Request) {
    if r.URL.Path != "/v1/admin/plan-metrics" || r.Method != http.MethodGet { writeProblem(w, 404, "Not Found", "", r.URL.Path); return }
    p := s.getPrincipal(r)
    if !p.IsAdmin() { writeProblem(w, 403, "Forbidden", "admin required", r.URL.Path); return }
    day := r.URL.Query().Get("day")
    if day == "" { day = time.Now().UTC().Format("2006-01-02") }
    mode := r.URL.Query().Get("mode")
    items := []map[string]any{}
    for md, m := range opt.GetMetrics(p.Tenant, day) {
        if mode != "" && md != mode { continue }
        items = append(items, map[string]any{
            "mode":         md,
            "iterations":   m.Iterations,
            "swapsTried":   m.SwapsTried,
            "improvements": m.Improvements,
            "baseFitness":  m.BaseFitness,
            "bestFitness":  m.BestFitness,
            "feasible":     m.Feasible,
        })
    }
    writeJSON(w, 200, map[string]any{"day": day, "items": items})
}

// Admin: webhook DLQ list and requeue
func (s *Server) WebhookDLQHandler(w http.ResponseWriter, r *http.Request) {
    p := s.getPrincipal(r)
    if !p.IsAdmin() { writeProblem(w, 403, "Forbidden", "admin required", r.URL.Path); return }
    if r.URL.Path == "/v1/admin/webhook-dlq" && r.Method == http.MethodGet {
        cursor := r.URL.Query().Get("cursor")
        limit := 100
        if v := r.URL.Query().Get("limit"); v != "" { fmt.Sscanf(v, "%d", &limit) }
        eventType := r.URL.Query().Get("eventType")
        olderThanHours := 0
        if v := r.URL.Query().Get("olderThanHours"); v != "" { fmt.Sscanf(v, "%d", &olderThanHours) }
        var older time.Time
        if olderThanHours > 0 { older = time.Now().Add(-time.Duration(olderThanHours) * time.Hour) }
        codeMin := 0; codeMax := 0
        if v := r.URL.Query().Get("responseCodeMin"); v != "" { fmt.Sscanf(v, "%d", &codeMin) }
        if v := r.URL.Query().Get("responseCodeMax"); v != "" { fmt.Sscanf(v, "%d", &codeMax) }
        errorQuery := r.URL.Query().Get("errorQuery")
        items, next, err := s.Store.ListWebhookDLQ(r.Context(), p.Tenant, eventType, older, codeMin, codeMax, errorQuery, cursor, limit)
        if err != nil { writeProblem(w, 500, "List DLQ failed", err.Error(), r.URL.Path); return }
        writeJSON(w, 200, map[string]any{"items": items, "nextCursor": next})
        return
    }
    if r.URL.Path == "/v1/admin/webhook-dlq" && r.Method == http.MethodPost {
        var req struct{ IDs []string `json:"ids"` }
        if err := json.NewDecoder(r.Body).Decode(&req); err != nil { writeProblem(w, 400, "Invalid JSON", err.Error(), r.URL.Path); return }
        if len(req.IDs) == 0 { writeProblem(w, 400, "Missing ids", "", r.URL.Path); return }
        if err := s.Store.RequeueWebhookDLQBulk(r.Context(), p.Tenant, req.IDs); err != nil { writeProblem(w, 500, "Bulk requeue failed", err.Error(), r.URL.Path); return }
        writeJSON(w, 202, map[string]int{"accepted": len(req.IDs)})
        return
    }
    if r.URL.Path == "/v1/admin/webhook-dlq" && r.Method == http.MethodDelete {
        var req struct{ IDs []string `json:"ids"`; OlderThanHours int `json:"olderThanHours"` }
        if err := json.NewDecoder(r.Body).Decode(&req); err != nil { writeProblem(w, 400, "Invalid JSON", err.Error(), r.URL.Path); return }
        var older time.Time
        if req.OlderThanHours > 0 { older = time.Now().Add(-time.Duration(req.OlderThanHours) * time.Hour) }
        if err := s.Store.DeleteWebhookDLQBulk(r.Context(), p.Tenant, req.IDs, older); err != nil { writeProblem(w, 500, "Bulk delete failed", err.Error(), r.URL.Path); return }
        writeJSON(w, 202, map[string]int{"accepted": 1})
        return
    }
    if strings.HasPrefix(r.URL.Path, "/v1/admin/webhook-dlq/") && strings.HasSuffix(r.URL.Path, "/requeue") && r.Method == http.MethodPost {
        id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/v1/admin/webhook-dlq/"), "/requeue")
        if err := s.Store.RequeueWebhookDLQ(r.Context(), p.Tenant, id); err != nil { writeProblem(w, 500, "Requeue failed", err.Error(), r.URL.Path); return }
        writeJSON(w, 202, map[string]int{"accepted": 1})
        return
    }
    writeProblem(w, 404, "Not Found", "", r.URL.Path)
}
