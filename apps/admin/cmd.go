package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/trezcool/academia/apps/api/echo"
	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/certificate"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/progress"
	"github.com/trezcool/academia/core/user"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	db      *sql.DB
	conf    *core.Config
	out     io.Writer
	usrSvc  *user.Service
	crsSvc  *course.Service
	progSvc *progress.Service
	certSvc *certificate.Service
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose migration command (up, down, status, ...)")
	fmt.Fprintln(cli.out, "  adduser -name NAME -kind school|teacher|student [-username USERNAME] [-email EMAIL] [-school ID] - create a user")
	fmt.Fprintln(cli.out, "  addcourse -name NAME [-description TEXT] - create a course")
	fmt.Fprintln(cli.out, "  enroll -course ID -students ID[,ID...] - enroll students in a course")
	fmt.Fprintln(cli.out, "  reorder -course ID -kind lesson|exercise - renumber a course's chapters of a kind")
	fmt.Fprintln(cli.out, "  certificate -student ID -course ID - issue (or get) a student's certificate")
	fmt.Fprintln(cli.out, "  reportcard -student ID -out FILE.xlsx - export a student's exercise scores")
	fmt.Fprintln(cli.out, "  token -user ID - generate an API token")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()

	addUserCmd := flag.NewFlagSet("adduser", flag.ExitOnError)
	addUserName := addUserCmd.String("name", "", "The user's full name.")
	addUserKind := addUserCmd.String("kind", "", "The kind of user: school, teacher or student.")
	addUserUname := addUserCmd.String("username", "", "The user's username.")
	addUserEmail := addUserCmd.String("email", "", "The user's email.")
	addUserSchool := addUserCmd.String("school", "", "The ID of the user's school.")

	addCourseCmd := flag.NewFlagSet("addcourse", flag.ExitOnError)
	addCourseName := addCourseCmd.String("name", "", "The course name.")
	addCourseDesc := addCourseCmd.String("description", "", "The course description.")

	enrollCmd := flag.NewFlagSet("enroll", flag.ExitOnError)
	enrollCourse := enrollCmd.String("course", "", "The course ID.")
	enrollStudents := enrollCmd.String("students", "", "Comma separated student IDs.")

	reorderCmd := flag.NewFlagSet("reorder", flag.ExitOnError)
	reorderCourse := reorderCmd.String("course", "", "The course ID.")
	reorderKind := reorderCmd.String("kind", "", "The kind of chapters to renumber: lesson or exercise.")

	certCmd := flag.NewFlagSet("certificate", flag.ExitOnError)
	certStudent := certCmd.String("student", "", "The student ID.")
	certCourse := certCmd.String("course", "", "The course ID.")

	reportCmd := flag.NewFlagSet("reportcard", flag.ExitOnError)
	reportStudent := reportCmd.String("student", "", "The student ID.")
	reportOut := reportCmd.String("out", "", "The xlsx file to write.")

	tokenCmd := flag.NewFlagSet("token", flag.ExitOnError)
	tokenUser := tokenCmd.String("user", "", "The user ID.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(ctx, args[2:])
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserName == "" || *addUserKind == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(ctx, user.NewUser{
			Name:     *addUserName,
			Username: *addUserUname,
			Email:    *addUserEmail,
			Kind:     user.Kind(strings.ToLower(*addUserKind)),
			SchoolID: *addUserSchool,
		})
	case "addcourse":
		if err := addCourseCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addCourseName == "" {
			addCourseCmd.Usage()
			return errHelp
		}
		return cli.addCourse(ctx, course.NewCourse{Name: *addCourseName, Description: *addCourseDesc})
	case "enroll":
		if err := enrollCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *enrollCourse == "" || *enrollStudents == "" {
			enrollCmd.Usage()
			return errHelp
		}
		return cli.enroll(ctx, *enrollCourse, strings.Split(*enrollStudents, ","))
	case "reorder":
		if err := reorderCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *reorderCourse == "" || *reorderKind == "" {
			reorderCmd.Usage()
			return errHelp
		}
		return cli.reorder(ctx, *reorderCourse, *reorderKind)
	case "certificate":
		if err := certCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *certStudent == "" || *certCourse == "" {
			certCmd.Usage()
			return errHelp
		}
		return cli.certificate(ctx, *certStudent, *certCourse)
	case "reportcard":
		if err := reportCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *reportStudent == "" || *reportOut == "" {
			reportCmd.Usage()
			return errHelp
		}
		return cli.reportCard(ctx, *reportStudent, *reportOut)
	case "token":
		if err := tokenCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *tokenUser == "" {
			tokenCmd.Usage()
			return errHelp
		}
		return cli.token(ctx, *tokenUser)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) addUser(ctx context.Context, nu user.NewUser) error {
	usr, err := cli.usrSvc.Create(ctx, nu)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%s %s created: %s\n", usr.Kind, usr.Name, usr.ID)
	return nil
}

func (cli *commandLine) addCourse(ctx context.Context, nc course.NewCourse) error {
	crs, err := cli.crsSvc.CreateCourse(ctx, nc)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "course %s created: %s\n", crs.Name, crs.ID)
	return nil
}

func (cli *commandLine) enroll(ctx context.Context, courseID string, studentIDs []string) error {
	for i := range studentIDs {
		studentIDs[i] = strings.TrimSpace(studentIDs[i])
	}
	if err := cli.crsSvc.Enroll(ctx, courseID, studentIDs...); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%d student(s) enrolled\n", len(studentIDs))
	return nil
}

func (cli *commandLine) reorder(ctx context.Context, courseID, kind string) error {
	k, err := course.ParseKind(kind)
	if err != nil {
		return err
	}
	if err = cli.crsSvc.ReorderChapters(ctx, courseID, k); err != nil {
		return err
	}
	outline, err := cli.crsSvc.Outline(ctx, courseID)
	if err != nil {
		return err
	}
	for _, ch := range outline.All() {
		fmt.Fprintf(cli.out, "%5s  %-8s %s\n", ch.Order, ch.Kind, ch.Title)
	}
	return nil
}

func (cli *commandLine) certificate(ctx context.Context, studentID, courseID string) error {
	cert, err := cli.certSvc.Ensure(ctx, studentID, courseID)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "certificate %s issued at %s\n", cert.Code, cert.IssuedAt.Format("2006-01-02 15:04:05"))
	return nil
}

func (cli *commandLine) reportCard(ctx context.Context, studentID, path string) error {
	student, err := cli.usrSvc.GetByID(ctx, studentID)
	if err != nil {
		return err
	}
	cards, err := cli.progSvc.ReportCard(ctx, student.ID)
	if err != nil {
		return err
	}
	if err = writeReportCard(path, student, cards); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "report card of %s written to %s\n", student.Name, path)
	return nil
}

func (cli *commandLine) token(ctx context.Context, userID string) error {
	usr, err := cli.usrSvc.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	token, err := echoapi.GenerateToken(echoapi.NewClaims(usr, cli.conf), cli.conf.SecretKey)
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out, token)
	return nil
}
