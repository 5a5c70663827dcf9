package templates

// Marker names addressed by the modes
const (
	Confirm        = "querenxuanze"
	Start          = "kaishitiaozhan"
	InScenario     = "likai"
	Again          = "zaicijinixng"
	ChooseDocument = "xuanzemihan"
	DoNotUse       = "bushiyong"
	Evacuate       = "cheli"
	Continue       = "jixutiaozhan"

	RewardFirst          = "reward.first"
	RewardSecond         = "reward.second"
	RewardSecondInferior = "reward.cishi-second"
	RewardThird          = "reward.third"
	RewardThirdShards    = "reward.suipian-third"
	RewardThirdWeapon    = "reward.wuqi-third"
)

// Sub-directories of the control directory
const (
	WeaponDocumentDir    = "武器密函png"
	CharacterDocumentDir = "角色密函png"
	RewardDir            = "奖励选择png"
)

// DocumentScales are tried, in order, for the document selection flow
var DocumentScales = []float64{1.0, 0.95, 0.9, 1.05, 1.1}

// DocumentThreshold applies to the document selection flow
const DocumentThreshold = 0.80

// Core lists the markers reported by the startup self-check
var Core = []string{ChooseDocument, DoNotUse, Confirm, InScenario, Again}

var builtins = []MarkerDefinition{
	{Name: Confirm, Path: "querenxuanze.png", Preload: true},
	{Name: Start, Path: "kaishitiaozhan.png", Preload: true},
	{Name: InScenario, Path: "likai.png", Preload: true},
	{Name: Again, Path: "zaicijinixng.png", Preload: true},
	{Name: ChooseDocument, Path: "xuanzemihan.png", Threshold: DocumentThreshold, Scales: DocumentScales},
	{Name: DoNotUse, Path: "bushiyong.png", Threshold: DocumentThreshold, Scales: DocumentScales},
	{Name: Evacuate, Path: "cheli.png", Threshold: DocumentThreshold},
	{Name: Continue, Path: "jixutiaozhan.png", Threshold: DocumentThreshold},

	{Name: RewardFirst, Path: RewardDir + "/first.png"},
	{Name: RewardSecond, Path: RewardDir + "/second.png"},
	{Name: RewardSecondInferior, Path: RewardDir + "/cishi-second.png"},
	{Name: RewardThird, Path: RewardDir + "/third.png"},
	{Name: RewardThirdShards, Path: RewardDir + "/suipian-third.png"},
	{Name: RewardThirdWeapon, Path: RewardDir + "/wuqi-third.png"},
}
