package api

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/schedule"
)

func listSpecialtiesHandler(dir Directory, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		specialties, err := dir.ListSpecialties(r.Context())
		if err != nil {
			writeServiceError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, specialties)
	}
}

func listDoctorsHandler(dir Directory, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		specialtyID, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		doctors, err := dir.ListDoctors(r.Context(), specialtyID)
		if err != nil {
			writeServiceError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, doctors)
	}
}

func bookableDatesHandler(av Availability, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		dates, err := av.ListBookableDates(r.Context(), doctorID)
		if err != nil {
			writeServiceError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, BookableDatesResponse{Dates: dates})
	}
}

func bookableSlotsHandler(av Availability, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		date, ok := requiredDate(w, r, "date")
		if !ok {
			return
		}
		slots, err := av.ListBookableSlots(r.Context(), doctorID, date)
		if err != nil {
			writeServiceError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, SlotsResponse{Slots: slots})
	}
}

func windowSlotsHandler(av Availability, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		windowID, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		date, ok := requiredDate(w, r, "date")
		if !ok {
			return
		}
		times, err := av.ListWindowSlots(r.Context(), windowID, date)
		if err != nil {
			writeServiceError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, AvailableSlotsResponse{AvailableSlots: times})
	}
}

func doctorWindowsHandler(auth Authoring, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		date, ok := queryDate(w, r, "schedule_date")
		if !ok {
			return
		}
		available, ok := queryBool(w, r, "available")
		if !ok {
			return
		}
		windows, err := auth.ListWindows(r.Context(), doctorID, schedule.WindowFilter{Date: date, Available: available})
		if err != nil {
			writeServiceError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, windows)
	}
}

func coveredWeekdaysHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start, ok := requiredDate(w, r, "start_date")
		if !ok {
			return
		}
		end, ok := requiredDate(w, r, "end_date")
		if !ok {
			return
		}
		days := schedule.CoveredWeekdays(start, end)
		names := make([]string, 0, len(days))
		for _, d := range days {
			names = append(names, d.String())
		}
		writeJSON(w, http.StatusOK, WeekdaysResponse{Weekdays: names})
	}
}
