package tags

import (
	"sort"
	"strconv"
	"strings"
)

// Pointer and offset-bearing tags.
const (
	ExifIFDPointer      ID = 0x8769
	GPSIFDPointer       ID = 0x8825
	InteropIFDPointer   ID = 0xA005
	StripOffsets        ID = 0x0111
	TileOffsets         ID = 0x0144
	JPEGInterchange     ID = 0x0201
	JPEGInterchangeSize ID = 0x0202
)

// GPS directory tags.
const (
	GPSLatitudeRef ID = 0x0001
	GPSLatitude    ID = 0x0002
)

// Tags the codec writes on behalf of callers.
const (
	ImageDescription  ID = 0x010E
	Make              ID = 0x010F
	Model             ID = 0x0110
	Software          ID = 0x0131
	DateTime          ID = 0x0132
	Artist            ID = 0x013B
	Copyright         ID = 0x8298
	FNumber           ID = 0x829D
	ISOSpeedRatings   ID = 0x8827
	ISOSpeed          ID = 0x8833
	DateTimeOriginal  ID = 0x9003
	DateTimeDigitized ID = 0x9004
	FocalLength       ID = 0x920A
	BodySerialNumber  ID = 0xA431
	LensMake          ID = 0xA433
	LensModel         ID = 0xA434
	LensSerialNumber  ID = 0xA435
)

// table is the complete list of tags the system reads or writes. Order is
// irrelevant; the lookup maps are built from it once.
var table = []Info{
	// IFD0
	{ID: 0x00FE, Name: "NewSubfileType", Display: "New Subfile Type", Type: Long},
	{ID: 0x0100, Name: "ImageWidth", Display: "Image Width", Type: Long},
	{ID: 0x0101, Name: "ImageLength", Display: "Image Length", Type: Long},
	{ID: 0x0102, Name: "BitsPerSample", Display: "Bits Per Sample", Type: Short},
	{ID: 0x0103, Name: "Compression", Display: "Compression", Type: Short},
	{ID: 0x0106, Name: "PhotometricInterpretation", Display: "Photometric Interpretation", Type: Short},
	{ID: 0x010D, Name: "DocumentName", Display: "Document Name", Type: Ascii},
	{ID: ImageDescription, Name: "Film", Display: "Image Description (Film)", Type: Ascii, XMP: "dc:description", Writable: true},
	{ID: Make, Name: "Make", Display: "Make", Type: Ascii, XMP: "tiff:Make", Writable: true},
	{ID: Model, Name: "Model", Display: "Model", Type: Ascii, XMP: "tiff:Model", Writable: true},
	{ID: StripOffsets, Name: "StripOffsets", Display: "Strip Offsets", Type: Long},
	{ID: 0x0112, Name: "Orientation", Display: "Orientation", Type: Short},
	{ID: 0x0115, Name: "SamplesPerPixel", Display: "Samples Per Pixel", Type: Short},
	{ID: 0x0116, Name: "RowsPerStrip", Display: "Rows Per Strip", Type: Long},
	{ID: 0x0117, Name: "StripByteCounts", Display: "Strip Byte Counts", Type: Long},
	{ID: 0x011A, Name: "XResolution", Display: "X Resolution", Type: Rational},
	{ID: 0x011B, Name: "YResolution", Display: "Y Resolution", Type: Rational},
	{ID: 0x011C, Name: "PlanarConfiguration", Display: "Planar Configuration", Type: Short},
	{ID: 0x0128, Name: "ResolutionUnit", Display: "Resolution Unit", Type: Short},
	{ID: Software, Name: "Software", Display: "Software", Type: Ascii, XMP: "tiff:Software", Writable: true},
	{ID: DateTime, Name: "DateTime", Display: "Date/Time", Type: Ascii, XMP: "tiff:DateTime", Writable: true},
	{ID: Artist, Name: "Artist", Display: "Artist", Type: Ascii, XMP: "dc:creator", Writable: true},
	{ID: 0x013E, Name: "WhitePoint", Display: "White Point", Type: Rational},
	{ID: 0x013F, Name: "PrimaryChromaticities", Display: "Primary Chromaticities", Type: Rational},
	{ID: TileOffsets, Name: "TileOffsets", Display: "Tile Offsets", Type: Long},
	{ID: JPEGInterchange, Name: "JPEGInterchangeFormat", Display: "Thumbnail Offset", Type: Long},
	{ID: JPEGInterchangeSize, Name: "JPEGInterchangeFormatLength", Display: "Thumbnail Length", Type: Long},
	{ID: 0x0211, Name: "YCbCrCoefficients", Display: "YCbCr Coefficients", Type: Rational},
	{ID: 0x0213, Name: "YCbCrPositioning", Display: "YCbCr Positioning", Type: Short},
	{ID: 0x0214, Name: "ReferenceBlackWhite", Display: "Reference Black/White", Type: Rational},
	{ID: Copyright, Name: "Copyright", Display: "Copyright", Type: Ascii, XMP: "dc:rights", Writable: true},
	{ID: ExifIFDPointer, Name: "ExifIFDPointer", Display: "Exif IFD Pointer", Type: Long},
	{ID: GPSIFDPointer, Name: "GPSInfoIFDPointer", Display: "GPS IFD Pointer", Type: Long},
	{ID: 0xC612, Name: "DNGVersion", Display: "DNG Version", Type: Byte},
	{ID: 0xC614, Name: "UniqueCameraModel", Display: "Unique Camera Model", Type: Ascii},

	// Exif sub-IFD
	{ID: 0x829A, Name: "ExposureTime", Display: "Exposure Time", Type: Rational, Namespace: ExifIFD},
	{ID: FNumber, Name: "FNumber", Display: "F-Number", Type: Rational, Namespace: ExifIFD, XMP: "exif:FNumber", Writable: true},
	{ID: 0x8822, Name: "ExposureProgram", Display: "Exposure Program", Type: Short, Namespace: ExifIFD},
	{ID: ISOSpeedRatings, Name: "ISOSpeedRatings", Display: "ISO Speed Ratings", Type: Short, Namespace: ExifIFD, XMP: "exif:ISOSpeedRatings", Writable: true},
	{ID: 0x8830, Name: "SensitivityType", Display: "Sensitivity Type", Type: Short, Namespace: ExifIFD},
	{ID: ISOSpeed, Name: "ISOSpeed", Display: "ISO Speed", Type: Long, Namespace: ExifIFD, XMP: "exif:ISOSpeed", Writable: true},
	{ID: 0x9000, Name: "ExifVersion", Display: "EXIF Version", Type: Undefined, Namespace: ExifIFD},
	{ID: DateTimeOriginal, Name: "DateTimeOriginal", Display: "Date/Time Original", Type: Ascii, Namespace: ExifIFD, XMP: "exif:DateTimeOriginal", Writable: true},
	{ID: DateTimeDigitized, Name: "DateTimeDigitized", Display: "Date/Time Digitized", Type: Ascii, Namespace: ExifIFD, XMP: "exif:DateTimeDigitized", Writable: true},
	{ID: 0x9010, Name: "OffsetTime", Display: "Offset Time", Type: Ascii, Namespace: ExifIFD},
	{ID: 0x9011, Name: "OffsetTimeOriginal", Display: "Offset Time Original", Type: Ascii, Namespace: ExifIFD},
	{ID: 0x9101, Name: "ComponentsConfiguration", Display: "Components Configuration", Type: Undefined, Namespace: ExifIFD},
	{ID: 0x9102, Name: "CompressedBitsPerPixel", Display: "Compressed Bits Per Pixel", Type: Rational, Namespace: ExifIFD},
	{ID: 0x9201, Name: "ShutterSpeedValue", Display: "Shutter Speed Value", Type: SRational, Namespace: ExifIFD},
	{ID: 0x9202, Name: "ApertureValue", Display: "Aperture Value", Type: Rational, Namespace: ExifIFD},
	{ID: 0x9203, Name: "BrightnessValue", Display: "Brightness Value", Type: SRational, Namespace: ExifIFD},
	{ID: 0x9204, Name: "ExposureBiasValue", Display: "Exposure Bias Value", Type: SRational, Namespace: ExifIFD},
	{ID: 0x9205, Name: "MaxApertureValue", Display: "Max Aperture Value", Type: Rational, Namespace: ExifIFD},
	{ID: 0x9206, Name: "SubjectDistance", Display: "Subject Distance", Type: Rational, Namespace: ExifIFD},
	{ID: 0x9207, Name: "MeteringMode", Display: "Metering Mode", Type: Short, Namespace: ExifIFD},
	{ID: 0x9208, Name: "LightSource", Display: "Light Source", Type: Short, Namespace: ExifIFD},
	{ID: 0x9209, Name: "Flash", Display: "Flash", Type: Short, Namespace: ExifIFD},
	{ID: FocalLength, Name: "FocalLength", Display: "Focal Length", Type: Rational, Namespace: ExifIFD, XMP: "exif:FocalLength", Writable: true},
	{ID: 0x927C, Name: "MakerNote", Display: "Maker Note", Type: Undefined, Namespace: ExifIFD},
	{ID: 0x9286, Name: "UserComment", Display: "User Comment", Type: Undefined, Namespace: ExifIFD},
	{ID: 0x9290, Name: "SubSecTime", Display: "Sub-Sec Time", Type: Ascii, Namespace: ExifIFD},
	{ID: 0x9291, Name: "SubSecTimeOriginal", Display: "Sub-Sec Time Original", Type: Ascii, Namespace: ExifIFD},
	{ID: 0x9292, Name: "SubSecTimeDigitized", Display: "Sub-Sec Time Digitized", Type: Ascii, Namespace: ExifIFD},
	{ID: 0xA000, Name: "FlashpixVersion", Display: "Flashpix Version", Type: Undefined, Namespace: ExifIFD},
	{ID: 0xA001, Name: "ColorSpace", Display: "Color Space", Type: Short, Namespace: ExifIFD},
	{ID: 0xA002, Name: "PixelXDimension", Display: "Pixel X Dimension", Type: Long, Namespace: ExifIFD},
	{ID: 0xA003, Name: "PixelYDimension", Display: "Pixel Y Dimension", Type: Long, Namespace: ExifIFD},
	{ID: 0xA004, Name: "RelatedSoundFile", Display: "Related Sound File", Type: Ascii, Namespace: ExifIFD},
	{ID: InteropIFDPointer, Name: "InteroperabilityIFDPointer", Display: "Interoperability IFD Pointer", Type: Long, Namespace: ExifIFD},
	{ID: 0xA20E, Name: "FocalPlaneXResolution", Display: "Focal Plane X Resolution", Type: Rational, Namespace: ExifIFD},
	{ID: 0xA20F, Name: "FocalPlaneYResolution", Display: "Focal Plane Y Resolution", Type: Rational, Namespace: ExifIFD},
	{ID: 0xA210, Name: "FocalPlaneResolutionUnit", Display: "Focal Plane Resolution Unit", Type: Short, Namespace: ExifIFD},
	{ID: 0xA214, Name: "SubjectLocation", Display: "Subject Location", Type: Short, Namespace: ExifIFD},
	{ID: 0xA215, Name: "ExposureIndex", Display: "Exposure Index", Type: Rational, Namespace: ExifIFD},
	{ID: 0xA217, Name: "SensingMethod", Display: "Sensing Method", Type: Short, Namespace: ExifIFD},
	{ID: 0xA300, Name: "FileSource", Display: "File Source", Type: Undefined, Namespace: ExifIFD},
	{ID: 0xA301, Name: "SceneType", Display: "Scene Type", Type: Undefined, Namespace: ExifIFD},
	{ID: 0xA302, Name: "CFAPattern", Display: "CFA Pattern", Type: Undefined, Namespace: ExifIFD},
	{ID: 0xA401, Name: "CustomRendered", Display: "Custom Rendered", Type: Short, Namespace: ExifIFD},
	{ID: 0xA402, Name: "ExposureMode", Display: "Exposure Mode", Type: Short, Namespace: ExifIFD},
	{ID: 0xA403, Name: "WhiteBalance", Display: "White Balance", Type: Short, Namespace: ExifIFD},
	{ID: 0xA404, Name: "DigitalZoomRatio", Display: "Digital Zoom Ratio", Type: Rational, Namespace: ExifIFD},
	{ID: 0xA405, Name: "FocalLengthIn35mmFilm", Display: "Focal Length (35mm equiv)", Type: Short, Namespace: ExifIFD},
	{ID: 0xA406, Name: "SceneCaptureType", Display: "Scene Capture Type", Type: Short, Namespace: ExifIFD},
	{ID: 0xA407, Name: "GainControl", Display: "Gain Control", Type: Short, Namespace: ExifIFD},
	{ID: 0xA408, Name: "Contrast", Display: "Contrast", Type: Short, Namespace: ExifIFD},
	{ID: 0xA409, Name: "Saturation", Display: "Saturation", Type: Short, Namespace: ExifIFD},
	{ID: 0xA40A, Name: "Sharpness", Display: "Sharpness", Type: Short, Namespace: ExifIFD},
	{ID: 0xA40B, Name: "DeviceSettingDescription", Display: "Device Setting Description", Type: Undefined, Namespace: ExifIFD},
	{ID: 0xA40C, Name: "SubjectDistanceRange", Display: "Subject Distance Range", Type: Short, Namespace: ExifIFD},
	{ID: 0xA420, Name: "ImageUniqueID", Display: "Image Unique ID", Type: Ascii, Namespace: ExifIFD},
	{ID: 0xA430, Name: "CameraOwnerName", Display: "Camera Owner Name", Type: Ascii, Namespace: ExifIFD},
	{ID: BodySerialNumber, Name: "BodySerialNumber", Display: "Body Serial Number", Type: Ascii, Namespace: ExifIFD, XMP: "aux:SerialNumber", Writable: true},
	{ID: 0xA432, Name: "LensSpecification", Display: "Lens Specification", Type: Rational, Namespace: ExifIFD},
	{ID: LensMake, Name: "LensMake", Display: "Lens Make", Type: Ascii, Namespace: ExifIFD, XMP: "exif:LensMake", Writable: true},
	{ID: LensModel, Name: "LensModel", Display: "Lens Model", Type: Ascii, Namespace: ExifIFD, XMP: "aux:LensModel", Writable: true},
	{ID: LensSerialNumber, Name: "LensSerialNumber", Display: "Lens Serial Number", Type: Ascii, Namespace: ExifIFD, XMP: "aux:LensSerialNumber", Writable: true},

	// GPS sub-IFD
	{ID: 0x0000, Name: "GPSVersionID", Display: "GPS Version ID", Type: Byte, Namespace: GPSIFD},
	{ID: GPSLatitudeRef, Name: "GPSLatitudeRef", Display: "GPS Latitude Ref", Type: Ascii, Namespace: GPSIFD},
	{ID: GPSLatitude, Name: "GPSLatitude", Display: "GPS Latitude", Type: Rational, Namespace: GPSIFD},
	{ID: 0x0003, Name: "GPSLongitudeRef", Display: "GPS Longitude Ref", Type: Ascii, Namespace: GPSIFD},
	{ID: 0x0004, Name: "GPSLongitude", Display: "GPS Longitude", Type: Rational, Namespace: GPSIFD},
	{ID: 0x0005, Name: "GPSAltitudeRef", Display: "GPS Altitude Ref", Type: Byte, Namespace: GPSIFD},
	{ID: 0x0006, Name: "GPSAltitude", Display: "GPS Altitude", Type: Rational, Namespace: GPSIFD},
	{ID: 0x0007, Name: "GPSTimeStamp", Display: "GPS Time Stamp", Type: Rational, Namespace: GPSIFD},
	{ID: 0x0012, Name: "GPSMapDatum", Display: "GPS Map Datum", Type: Ascii, Namespace: GPSIFD},
	{ID: 0x001D, Name: "GPSDateStamp", Display: "GPS Date Stamp", Type: Ascii, Namespace: GPSIFD},
}

// aliases maps alternative FieldSet keys onto registry names.
var aliases = map[string]string{
	"aperture":         "FNumber",
	"f-number":         "FNumber",
	"iso":              "ISOSpeedRatings",
	"isospeedratings":  "ISOSpeedRatings",
	"isospeed":         "ISOSpeed",
	"film":             "Film",
	"imagedescription": "Film",
	"description":      "Film",
	"lens":             "LensModel",
}

var (
	byID   map[ID]Info
	byName map[string]Info
	byXMP  map[string]Info
)

func init() {
	byID = make(map[ID]Info, len(table))
	byName = make(map[string]Info, len(table)+len(aliases))
	byXMP = make(map[string]Info)
	for _, info := range table {
		byID[info.ID] = info
		byName[strings.ToLower(info.Name)] = info
		if info.XMP != "" {
			byXMP[info.XMP] = info
		}
	}
	for alias, name := range aliases {
		byName[alias] = byName[strings.ToLower(name)]
	}
}

// Lookup resolves a semantic field name (case-insensitive) to its tag.
func Lookup(name string) (Info, bool) {
	info, ok := byName[strings.ToLower(strings.TrimSpace(name))]
	return info, ok
}

// ByID returns the registry entry for id.
func ByID(id ID) (Info, bool) {
	info, ok := byID[id]
	return info, ok
}

// ByXMP returns the registry entry written to the XMP property prop
// ("tiff:Make", "exif:FNumber").
func ByXMP(prop string) (Info, bool) {
	info, ok := byXMP[prop]
	return info, ok
}

// DisplayName returns the human readable name of id, or "Tag <n>" when the
// tag is not in the registry.
func DisplayName(id ID) string {
	if info, ok := byID[id]; ok {
		return info.Display
	}
	return "Tag " + strconv.Itoa(int(id))
}

// IsPointer reports whether id holds the offset of a sub-IFD.
func IsPointer(id ID) bool {
	switch id {
	case ExifIFDPointer, GPSIFDPointer, InteropIFDPointer:
		return true
	}
	return false
}

// IsOffset reports whether id holds an absolute offset (or the length that
// goes with one) into data the codec does not carry.
func IsOffset(id ID) bool {
	switch id {
	case StripOffsets, TileOffsets, JPEGInterchange, JPEGInterchangeSize:
		return true
	}
	return IsPointer(id)
}

// Writable returns the registry entries accepted as FieldSet keys, in tag
// order.
func Writable() []Info {
	var out []Info
	for _, info := range table {
		if info.Writable {
			out = append(out, info)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
