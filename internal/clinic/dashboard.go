package clinic

import (
	"context"
	"fmt"

	"clinic-booking-api/internal/model"
)

type PatientDashboard struct {
	Name                 string              `json:"name"`
	Role                 model.Role          `json:"role"`
	UpcomingAppointments []model.Appointment `json:"upcomingAppointments"`
	Services             []string            `json:"services"`
}

type DoctorDashboard struct {
	Name              string              `json:"name"`
	Role              model.Role          `json:"role"`
	Specialization    string              `json:"specialization"`
	TodayAppointments []model.Appointment `json:"todayAppointments"`
	QuickActions      []string            `json:"quickActions"`
}

type AdminStats struct {
	TotalPatients     int `json:"totalPatients"`
	TotalDoctors      int `json:"totalDoctors"`
	AppointmentsToday int `json:"appointmentsToday"`
}

type AdminDashboard struct {
	Name         string     `json:"name"`
	Role         model.Role `json:"role"`
	Stats        AdminStats `json:"stats"`
	AdminActions []string   `json:"adminActions"`
}

var (
	doctorActions = []string{"View Today's Schedule", "Print Day Sheet", "Update Appointment Status"}
	adminActions  = []string{"Manage Doctors", "View Appointment Report", "Update Appointment Status"}
)

// PatientDashboard lists the caller's appointments from today onward.
func (s *Service) PatientDashboard(ctx context.Context, u *model.User) (*PatientDashboard, error) {
	all, err := s.store.ListPatientAppointments(ctx, u.ID)
	if err != nil {
		return nil, fmt.Errorf("list patient appointments: %w", err)
	}
	today := model.Today(s.now())
	upcoming := []model.Appointment{}
	for _, a := range all {
		if !a.Date.Before(today) {
			upcoming = append(upcoming, a)
		}
	}
	return &PatientDashboard{
		Name:                 u.Name,
		Role:                 u.Role,
		UpcomingAppointments: upcoming,
		Services:             s.services,
	}, nil
}

func (s *Service) DoctorDashboard(ctx context.Context, u *model.User) (*DoctorDashboard, error) {
	today, err := s.store.ListDayAppointments(ctx, model.Today(s.now()))
	if err != nil {
		return nil, fmt.Errorf("list day appointments: %w", err)
	}
	return &DoctorDashboard{
		Name:              u.Name,
		Role:              u.Role,
		Specialization:    u.Specialization,
		TodayAppointments: today,
		QuickActions:      doctorActions,
	}, nil
}

func (s *Service) AdminDashboard(ctx context.Context, u *model.User) (*AdminDashboard, error) {
	var st AdminStats
	var err error
	if st.TotalPatients, err = s.store.CountUsersByRole(ctx, model.RolePatient); err != nil {
		return nil, fmt.Errorf("count patients: %w", err)
	}
	if st.TotalDoctors, err = s.store.CountUsersByRole(ctx, model.RoleDoctor); err != nil {
		return nil, fmt.Errorf("count doctors: %w", err)
	}
	if st.AppointmentsToday, err = s.store.CountAppointments(ctx, model.Today(s.now())); err != nil {
		return nil, fmt.Errorf("count appointments: %w", err)
	}
	return &AdminDashboard{
		Name:         u.Name,
		Role:         u.Role,
		Stats:        st,
		AdminActions: adminActions,
	}, nil
}
