package model

// Lock is a registered door lock device (fechadura) and its onboard API
// credentials. Its unit codes, program codes, manual users and external users
// are exactly the four sources the roster is built from.
type Lock struct {
	ID          uint   `gorm:"primaryKey"                 json:"id"`
	Location    string `gorm:"type:varchar(255);not null" json:"location"`
	IP          string `gorm:"type:varchar(45);not null"  json:"ip"`
	Port        int    `gorm:"not null;default:80"        json:"port"`
	APIUser     string `gorm:"type:varchar(100);not null" json:"-"`
	APIPassword string `gorm:"type:varchar(100);not null" json:"-"`
	BaseModel

	Units         []LockUnit     `gorm:"foreignKey:LockID"                json:"units,omitempty"`
	Programs      []LockProgram  `gorm:"foreignKey:LockID"                json:"programs,omitempty"`
	Users         []User         `gorm:"many2many:lock_users;joinForeignKey:LockID;joinReferences:Codpes"  json:"users,omitempty"`
	Admins        []User         `gorm:"many2many:lock_admins;joinForeignKey:LockID;joinReferences:Codpes" json:"admins,omitempty"`
	ExternalUsers []ExternalUser `gorm:"foreignKey:LockID"                json:"external_users,omitempty"`
}

// TableName sets the table name.
func (Lock) TableName() string { return "locks" }

// UnitCodes returns the organizational-unit codes (codset) attached to the lock.
func (l *Lock) UnitCodes() []string {
	codes := make([]string, 0, len(l.Units))
	for _, u := range l.Units {
		codes = append(codes, u.Codset)
	}
	return codes
}

// ProgramCodes returns the graduate program codes (codare) attached to the lock.
func (l *Lock) ProgramCodes() []string {
	codes := make([]string, 0, len(l.Programs))
	for _, p := range l.Programs {
		codes = append(codes, p.Codare)
	}
	return codes
}

// LockUnit attaches one organizational-unit code to a lock.
type LockUnit struct {
	ID     uint   `gorm:"primaryKey"                json:"id"`
	LockID uint   `gorm:"not null;index"            json:"lock_id"`
	Codset string `gorm:"type:varchar(20);not null" json:"codset"`
}

// TableName sets the table name.
func (LockUnit) TableName() string { return "lock_units" }

// LockProgram attaches one graduate program code to a lock.
type LockProgram struct {
	ID     uint   `gorm:"primaryKey"                json:"id"`
	LockID uint   `gorm:"not null;index"            json:"lock_id"`
	Codare string `gorm:"type:varchar(20);not null" json:"codare"`
}

// TableName sets the table name.
func (LockProgram) TableName() string { return "lock_programs" }
