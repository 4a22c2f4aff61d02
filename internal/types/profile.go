package types

// ProfileSection is a titled list shown in the home page's about block.
type ProfileSection struct {
	Title string   `yaml:"title" json:"title" validate:"required"`
	Items []string `yaml:"items" json:"items"`
}

// Profile describes the portfolio owner.
type Profile struct {
	Name     string           `yaml:"name" json:"name" validate:"required"`
	Headline string           `yaml:"headline" json:"headline"`
	Contact  []string         `yaml:"contact" json:"contact"`
	Sections []ProfileSection `yaml:"sections" json:"sections" validate:"dive"`
}

// Validate validates the Profile using the validator.
func (p *Profile) Validate() error {
	return structValidator().Struct(p)
}
