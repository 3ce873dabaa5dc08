package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carehospital/portal/internal/platform/gateway"
)

// ---------------------------------------------------------------------------
// Static catalog
// ---------------------------------------------------------------------------

type seedDepartment struct {
	Name        string
	Description string
	Icon        string
}

type seedDoctor struct {
	FirstName       string
	LastName        string
	Specialization  string
	Qualification   string
	ExperienceYears int
	ImageURL        string
	Bio             string
	Department      string
}

type seedService struct {
	Name            string
	Description     string
	Department      string
	DurationMinutes int
	Price           float64
}

var seedDepartments = []seedDepartment{
	{"Emergency", "Round-the-clock emergency medical services for critical and urgent care situations, including trauma care and life-saving interventions.", "emergency"},
	{"Cardiology", "Specialized care for heart conditions, cardiovascular diseases, and cardiac health monitoring with advanced diagnostic tools.", "cardiology"},
	{"Pediatrics", "Comprehensive healthcare services for infants, children, and adolescents, focusing on growth, development, and preventive care.", "pediatrics"},
	{"Orthopedics", "Treatment of musculoskeletal system disorders, including bones, joints, ligaments, tendons, and sports-related injuries.", "orthopedics"},
	{"Neurology", "Diagnosis and treatment of nervous system disorders, brain, spinal cord conditions, and neurological rehabilitation.", "neurology"},
	{"Radiology", "Advanced medical imaging services including X-rays, CT scans, MRI, ultrasound, and specialized diagnostic imaging.", "radiology"},
	{"Dermatology", "Comprehensive skin care services, including treatment of skin conditions, cosmetic dermatology, and skin cancer screening.", "dermatology"},
	{"Ophthalmology", "Eye care services including vision exams, treatment of eye diseases, and surgical procedures for vision correction.", "ophthalmology"},
}

var seedDoctors = []seedDoctor{
	{
		FirstName: "Anthony", LastName: "Johnson", Specialization: "Emergency Medicine", Qualification: "MD, FACEP",
		ExperienceYears: 15, ImageURL: "/images/Dr Anthony.jpg", Department: "Emergency",
		Bio: "Dr. Anthony Johnson is a board-certified emergency medicine physician with over 15 years of experience in critical care and trauma management. He specializes in acute care and emergency procedures.",
	},
	{
		FirstName: "Mark", LastName: "Stevens", Specialization: "Cardiology", Qualification: "MD, FACC",
		ExperienceYears: 20, ImageURL: "/images/Dr Mark.jpg", Department: "Cardiology",
		Bio: "Dr. Mark Stevens is a renowned cardiologist with expertise in interventional cardiology and heart disease prevention. He has performed over 3,000 cardiac procedures and is dedicated to patient-centered care.",
	},
	{
		FirstName: "Tracy", LastName: "Williams", Specialization: "Pediatrics", Qualification: "MD, FAAP",
		ExperienceYears: 12, ImageURL: "/images/Dr Tracy.jpg", Department: "Pediatrics",
		Bio: "Dr. Tracy Williams is a compassionate pediatrician who specializes in child development and preventive care. She has a special interest in pediatric nutrition and childhood immunizations.",
	},
	{
		FirstName: "Sarah", LastName: "Chen", Specialization: "Orthopedics", Qualification: "MD, FAAOS",
		ExperienceYears: 18, ImageURL: "/images/Doctors.png", Department: "Orthopedics",
		Bio: "Dr. Sarah Chen is an orthopedic surgeon specializing in joint replacement and sports medicine. She has extensive experience in minimally invasive surgical techniques and rehabilitation.",
	},
	{
		FirstName: "Michael", LastName: "Rodriguez", Specialization: "Neurology", Qualification: "MD, FAAN",
		ExperienceYears: 14, ImageURL: "/images/Doctors.png", Department: "Neurology",
		Bio: "Dr. Michael Rodriguez is a neurologist with expertise in stroke care, epilepsy, and neurodegenerative disorders. He is committed to providing comprehensive neurological care to his patients.",
	},
	{
		FirstName: "Emily", LastName: "Davis", Specialization: "Radiology", Qualification: "MD, ABR",
		ExperienceYears: 16, ImageURL: "/images/Doctors.png", Department: "Radiology",
		Bio: "Dr. Emily Davis is a radiologist specializing in diagnostic imaging and interventional radiology. She uses advanced imaging technologies to provide accurate diagnoses and minimally invasive treatments.",
	},
}

var seedServices = []seedService{
	{"Emergency Consultation", "Immediate medical evaluation and treatment for urgent conditions", "Emergency", 30, 150},
	{"Trauma Care", "Comprehensive emergency care for traumatic injuries", "Emergency", 60, 500},
	{"Critical Care", "Intensive care for life-threatening conditions", "Emergency", 120, 800},

	{"Cardiac Consultation", "Comprehensive heart health evaluation and diagnosis", "Cardiology", 45, 200},
	{"Echocardiogram", "Ultrasound imaging of the heart to assess structure and function", "Cardiology", 30, 350},
	{"ECG/EKG", "Electrocardiogram to measure heart electrical activity", "Cardiology", 15, 100},
	{"Cardiac Catheterization", "Minimally invasive procedure to diagnose and treat heart conditions", "Cardiology", 90, 1200},

	{"Well-Child Visit", "Routine health checkup and developmental assessment for children", "Pediatrics", 30, 120},
	{"Vaccination", "Childhood immunizations and preventive care", "Pediatrics", 20, 80},
	{"Sick Visit", "Evaluation and treatment for childhood illnesses", "Pediatrics", 25, 100},
	{"Developmental Assessment", "Comprehensive evaluation of child development milestones", "Pediatrics", 45, 180},

	{"Orthopedic Consultation", "Evaluation of musculoskeletal conditions and injuries", "Orthopedics", 40, 180},
	{"Joint Injection", "Therapeutic injection for joint pain and inflammation", "Orthopedics", 20, 250},
	{"Sports Medicine Consultation", "Specialized care for athletic injuries and performance optimization", "Orthopedics", 35, 160},
	{"Physical Therapy Session", "Rehabilitation and strengthening exercises for musculoskeletal recovery", "Orthopedics", 60, 120},

	{"Neurological Consultation", "Comprehensive evaluation of nervous system disorders", "Neurology", 50, 220},
	{"EEG", "Electroencephalogram to measure brain electrical activity", "Neurology", 45, 300},
	{"MRI Brain Scan", "Magnetic resonance imaging for detailed brain visualization", "Neurology", 60, 800},
	{"Neurological Rehabilitation", "Therapeutic interventions for neurological recovery and adaptation", "Neurology", 45, 150},

	{"X-Ray", "Digital radiography for bone and tissue imaging", "Radiology", 15, 120},
	{"CT Scan", "Computed tomography for detailed cross-sectional imaging", "Radiology", 30, 600},
	{"MRI", "Magnetic resonance imaging for detailed soft tissue visualization", "Radiology", 45, 900},
	{"Ultrasound", "Real-time imaging using sound waves for diagnostic purposes", "Radiology", 25, 200},

	{"Dermatology Consultation", "Comprehensive skin evaluation and treatment planning", "Dermatology", 30, 140},
	{"Skin Cancer Screening", "Full body examination for skin cancer detection", "Dermatology", 45, 180},
	{"Acne Treatment", "Medical treatment for acne and related skin conditions", "Dermatology", 25, 120},

	{"Eye Examination", "Comprehensive vision and eye health assessment", "Ophthalmology", 40, 160},
	{"Glaucoma Screening", "Pressure testing and evaluation for glaucoma", "Ophthalmology", 30, 130},
	{"Cataract Evaluation", "Assessment and treatment planning for cataracts", "Ophthalmology", 35, 170},
}

// ---------------------------------------------------------------------------
// Seeder
// ---------------------------------------------------------------------------

// SeedStore is the write side of the gateway used by Seed.
type SeedStore interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
	UpsertDepartment(ctx context.Context, d *gateway.Department) error
	UpsertDoctor(ctx context.Context, d *gateway.Doctor) error
	UpsertService(ctx context.Context, s *gateway.Service) error
}

// SeedResult counts the rows written.
type SeedResult struct {
	Departments int `json:"departments"`
	Doctors     int `json:"doctors"`
	Services    int `json:"services"`
}

// Seed upserts the static catalog in one transaction. Running it again
// updates rows in place.
func Seed(ctx context.Context, store SeedStore, log zerolog.Logger) (SeedResult, error) {
	var res SeedResult
	err := store.InTx(ctx, func(ctx context.Context) error {
		res = SeedResult{}
		deptIDs := make(map[string]uuid.UUID, len(seedDepartments))
		for _, sd := range seedDepartments {
			d := &gateway.Department{Name: sd.Name, Description: sd.Description, Icon: sd.Icon}
			if err := store.UpsertDepartment(ctx, d); err != nil {
				return err
			}
			deptIDs[sd.Name] = d.ID
			res.Departments++
		}

		for _, sd := range seedDoctors {
			deptID, ok := deptIDs[sd.Department]
			if !ok {
				return fmt.Errorf("doctor %s %s: unknown department %q", sd.FirstName, sd.LastName, sd.Department)
			}
			d := &gateway.Doctor{
				DepartmentID:    deptID,
				FirstName:       sd.FirstName,
				LastName:        sd.LastName,
				Specialization:  sd.Specialization,
				Qualification:   sd.Qualification,
				ExperienceYears: sd.ExperienceYears,
				ImageURL:        sd.ImageURL,
				Bio:             sd.Bio,
				Available:       true,
			}
			if err := store.UpsertDoctor(ctx, d); err != nil {
				return err
			}
			res.Doctors++
		}

		for _, ss := range seedServices {
			deptID, ok := deptIDs[ss.Department]
			if !ok {
				return fmt.Errorf("service %s: unknown department %q", ss.Name, ss.Department)
			}
			s := &gateway.Service{
				DepartmentID:    deptID,
				Name:            ss.Name,
				Description:     ss.Description,
				DurationMinutes: ss.DurationMinutes,
				Price:           ss.Price,
			}
			if err := store.UpsertService(ctx, s); err != nil {
				return err
			}
			res.Services++
		}
		return nil
	})
	if err != nil {
		return SeedResult{}, fmt.Errorf("seed catalog: %w", err)
	}

	log.Info().
		Int("departments", res.Departments).
		Int("doctors", res.Doctors).
		Int("services", res.Services).
		Msg("catalog seeded")
	return res, nil
}
