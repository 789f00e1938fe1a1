package domain

import (
	"fmt"
)

// Modality identifies a physiotherapy treatment technique subject to its own safety rules.
type Modality string

const (
	ModalityMENS                     Modality = "MENS"
	ModalityEMSAussie                Modality = "EMS_Aussie"
	ModalityEMSRussian               Modality = "EMS_Russian"
	ModalityUltrasound1MHz           Modality = "Ultrasound_1MHz"
	ModalityUltrasound3MHz           Modality = "Ultrasound_3MHz"
	ModalityLaserTherapy             Modality = "Laser_Therapy"
	ModalityKinesiotherapy           Modality = "Kinesiotherapy"
	ModalityManualTherapy            Modality = "Manual_Therapy"
	ModalityNeuromuscularReeducation Modality = "Neuromuscular_Reeducation"
	ModalityPosturalExercise         Modality = "Postural_Exercise"
)

// ModalityFamily groups modalities that share one set of safety rules.
type ModalityFamily string

const (
	FamilyElectrotherapy ModalityFamily = "electrotherapy"
	FamilyUltrasound     ModalityFamily = "ultrasound"
	FamilyLaser          ModalityFamily = "laser"
	FamilyManualTherapy  ModalityFamily = "manual_therapy"
	FamilyExercise       ModalityFamily = "exercise"
)

// AllModalities returns the fixed modality set in catalogue order.
// A fresh slice is returned on every call.
func AllModalities() []Modality {
	return []Modality{
		ModalityMENS,
		ModalityEMSAussie,
		ModalityEMSRussian,
		ModalityUltrasound1MHz,
		ModalityUltrasound3MHz,
		ModalityLaserTherapy,
		ModalityKinesiotherapy,
		ModalityManualTherapy,
		ModalityNeuromuscularReeducation,
		ModalityPosturalExercise,
	}
}

// Family returns the rule family governing the modality. Every defined modality maps to exactly
// one family; the empty family is returned for unknown values.
func (m Modality) Family() ModalityFamily {
	switch m {
	case ModalityMENS, ModalityEMSAussie, ModalityEMSRussian:
		return FamilyElectrotherapy
	case ModalityUltrasound1MHz, ModalityUltrasound3MHz:
		return FamilyUltrasound
	case ModalityLaserTherapy:
		return FamilyLaser
	case ModalityManualTherapy:
		return FamilyManualTherapy
	case ModalityKinesiotherapy, ModalityNeuromuscularReeducation, ModalityPosturalExercise:
		return FamilyExercise
	default:
		return ""
	}
}

// IsValid reports whether m belongs to the fixed modality set.
func (m Modality) IsValid() bool {
	return m.Family() != ""
}

// String returns the modality identifier.
func (m Modality) String() string {
	return string(m)
}

// DisplayName returns the clinician-facing label for the modality.
func (m Modality) DisplayName() string {
	switch m {
	case ModalityMENS:
		return "Microcurrent (MENS)"
	case ModalityEMSAussie:
		return "EMS - Aussie current"
	case ModalityEMSRussian:
		return "EMS - Russian current"
	case ModalityUltrasound1MHz:
		return "Therapeutic ultrasound 1 MHz"
	case ModalityUltrasound3MHz:
		return "Therapeutic ultrasound 3 MHz"
	case ModalityLaserTherapy:
		return "Low-level laser therapy"
	case ModalityKinesiotherapy:
		return "Kinesiotherapy"
	case ModalityManualTherapy:
		return "Manual therapy"
	case ModalityNeuromuscularReeducation:
		return "Neuromuscular re-education"
	case ModalityPosturalExercise:
		return "Postural exercise"
	default:
		return string(m)
	}
}

// ParseModality validates a modality identifier received from outside the engine.
func ParseModality(s string) (Modality, error) {
	m := Modality(s)
	if !m.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidModality, s)
	}
	return m, nil
}

// ModalityInfo describes a modality for catalogue listings.
type ModalityInfo struct {
	Modality    Modality       `json:"modality"`
	Family      ModalityFamily `json:"family"`
	DisplayName string         `json:"display_name"`
}

// ModalityCatalogue lists every modality with its family and display name.
func ModalityCatalogue() []ModalityInfo {
	modalities := AllModalities()
	catalogue := make([]ModalityInfo, 0, len(modalities))
	for _, m := range modalities {
		catalogue = append(catalogue, ModalityInfo{
			Modality:    m,
			Family:      m.Family(),
			DisplayName: m.DisplayName(),
		})
	}
	return catalogue
}
