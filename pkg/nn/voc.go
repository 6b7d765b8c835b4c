package nn

const (
	VOCBackground = 0
	VOCAeroplane  = 1
	VOCBicycle    = 2
	VOCBird       = 3
	VOCBoat       = 4
	VOCBottle     = 5
	VOCBus        = 6
	VOCCar        = 7
	VOCCat        = 8
	VOCChair      = 9
	VOCCow        = 10
	VOCDog        = 12
	VOCHorse      = 13
	VOCPerson     = 15
)

// PASCAL VOC classes, as output by the Faster R-CNN models. Index 0 is the background class.
var VOCClasses = []string{
	"__background__",
	"aeroplane",
	"bicycle",
	"bird",
	"boat",
	"bottle",
	"bus",
	"car",
	"cat",
	"chair",
	"cow",
	"diningtable",
	"dog",
	"horse",
	"motorbike",
	"person",
	"pottedplant",
	"sheep",
	"sofa",
	"train",
	"tvmonitor",
}
