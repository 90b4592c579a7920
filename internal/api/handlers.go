package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"geocoin/internal/grid"
	"geocoin/internal/sensor"
	"geocoin/internal/world"
)

var moveOffsets = map[string][2]int{
	"north": {1, 0},
	"south": {-1, 0},
	"east":  {0, 1},
	"west":  {0, -1},
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := s.stateLocked()
	s.mu.Unlock()
	s.writeJSON(w, http.StatusOK, resp)
}

// stateLocked builds the full state response. Callers hold s.mu.
func (s *Server) stateLocked() StateResponse {
	player := s.sess.Player()
	resp := StateResponse{
		Player: PlayerState{
			Row:   player.Coord.I,
			Col:   player.Coord.J,
			Coins: player.Coins,
		},
		Path:         s.sess.Path(),
		Caches:       []CacheState{},
		SensorActive: s.watch != nil,
	}
	for _, info := range s.sess.Nearby() {
		resp.Caches = append(resp.Caches, CacheState{
			Cell:  info.Cell.Key(),
			South: info.Cell.South,
			West:  info.Cell.West,
			North: info.Cell.North,
			East:  info.Cell.East,
			Coins: info.Coins,
		})
	}
	return resp
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	dir := chi.URLParam(r, "dir")
	offset, ok := moveOffsets[dir]
	if !ok {
		s.writeError(w, r, http.StatusBadRequest, ErrTypeValidation,
			"direction must be north, south, east or west", map[string]any{"dir": dir})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.sess.MoveBy(offset[0], offset[1]); err != nil {
		s.handleCoreError(w, r, err)
		return
	}
	s.persist(r.Context())
	s.writeJSON(w, http.StatusOK, s.stateLocked())
}

func (s *Server) handleCollect(w http.ResponseWriter, r *http.Request) {
	var req CollectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, ErrTypeValidation, "malformed request body", nil)
		return
	}
	coord, err := grid.ParseKey(req.Cell)
	if err != nil {
		s.handleCoreError(w, r, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.sess.Collect(coord, world.CoinID(req.Coin)); err != nil {
		s.handleCoreError(w, r, err)
		return
	}
	s.persist(r.Context())
	s.writeJSON(w, http.StatusOK, s.stateLocked())
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	var req DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, ErrTypeValidation, "malformed request body", nil)
		return
	}
	coord, err := grid.ParseKey(req.Cell)
	if err != nil {
		s.handleCoreError(w, r, err)
		return
	}
	coins := make([]world.CoinID, len(req.Coins))
	for i, c := range req.Coins {
		coins[i] = world.CoinID(c)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.sess.Deposit(coord, coins...); err != nil {
		s.handleCoreError(w, r, err)
		return
	}
	s.persist(r.Context())
	s.writeJSON(w, http.StatusOK, s.stateLocked())
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req ResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, ErrTypeValidation, "malformed request body", nil)
		return
	}
	if !req.Confirm {
		s.writeError(w, r, http.StatusBadRequest, ErrTypeValidation, "reset requires confirmation", nil)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.sess.Reset(); err != nil {
		s.handleCoreError(w, r, err)
		return
	}
	s.persist(r.Context())
	s.writeJSON(w, http.StatusOK, s.stateLocked())
}

func (s *Server) handleSensor(w http.ResponseWriter, r *http.Request) {
	var req SensorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, ErrTypeValidation, "malformed request body", nil)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !req.Enabled {
		if s.watch != nil {
			s.watch.Stop()
			s.watch = nil
		}
		s.writeJSON(w, http.StatusOK, SensorResponse{Active: false})
		return
	}

	if s.watch != nil {
		s.writeJSON(w, http.StatusOK, SensorResponse{Active: true})
		return
	}
	if s.source == nil {
		s.writeError(w, r, http.StatusServiceUnavailable, ErrTypeSensorUnavailable,
			"no position source configured", nil)
		return
	}
	handle, err := s.source.Watch(s.onSensorUpdate, s.onSensorError)
	if err != nil {
		if errors.Is(err, sensor.ErrUnavailable) {
			s.writeError(w, r, http.StatusServiceUnavailable, ErrTypeSensorUnavailable, err.Error(), nil)
			return
		}
		s.writeError(w, r, http.StatusInternalServerError, ErrTypeInternal, err.Error(), nil)
		return
	}
	s.watch = handle
	s.writeJSON(w, http.StatusOK, SensorResponse{Active: true})
}

// onSensorUpdate handles one position fix as a serialized move event.
func (s *Server) onSensorUpdate(u sensor.Update) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.sess.MoveTo(u.Lat, u.Lng); err != nil {
		s.logger.Printf("sensor_move_rejected lat=%g lng=%g error=%v", u.Lat, u.Lng, err)
		return
	}
	s.persist(context.Background())
}

func (s *Server) onSensorError(err error) {
	if errors.Is(err, io.EOF) {
		// The stream ended on its own; drop the handle so the toggle
		// reports inactive and can be re-armed.
		s.mu.Lock()
		if s.watch != nil {
			s.watch.Stop()
			s.watch = nil
		}
		s.mu.Unlock()
		s.logger.Printf("sensor_stream_ended")
		return
	}
	s.logger.Printf("sensor_error error=%v", err)
}

// handleCoreError maps core error kinds onto HTTP statuses. All core
// errors are recoverable; state stays as it was before the request.
func (s *Server) handleCoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, grid.ErrInvalidCoordinate):
		s.writeError(w, r, http.StatusBadRequest, ErrTypeInvalidCoordinate, err.Error(), nil)
	case errors.Is(err, world.ErrNotFound):
		s.writeError(w, r, http.StatusNotFound, ErrTypeNotFound, err.Error(), nil)
	case errors.Is(err, world.ErrInvalidTarget):
		s.writeError(w, r, http.StatusConflict, ErrTypeInvalidTarget, err.Error(), nil)
	case errors.Is(err, sensor.ErrUnavailable):
		s.writeError(w, r, http.StatusServiceUnavailable, ErrTypeSensorUnavailable, err.Error(), nil)
	default:
		s.writeError(w, r, http.StatusInternalServerError, ErrTypeInternal, err.Error(), nil)
	}
}
